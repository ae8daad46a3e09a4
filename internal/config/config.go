package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	Store      StoreConfig
	Storage    StorageConfig
	R2         R2Config
	MinIO      MinIOConfig
	Text       TextConfig
	ElevenLabs ElevenLabsConfig
	Fal        FalConfig
	Compositor CompositorConfig
	Vendor     VendorConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

// RateLimitConfig holds per-user request budgets for each route group.
type RateLimitConfig struct {
	ScriptPerMin    int
	AudioPerHour    int
	ImagesPerHour   int
	VideoPerHour    int
	PipelinePerHour int
}

// StoreConfig selects the project state backend: memory, redis or postgres.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

// StorageConfig selects the object storage backend: r2, minio or none.
type StorageConfig struct {
	Driver string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// TextConfig configures an OpenAI-compatible chat completions endpoint.
type TextConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	OutputFormat string
}

type FalConfig struct {
	APIKey          string
	BaseURL         string
	ImageModel      string
	LipSyncModel    string
	TranscribeModel string
	PollInterval    int // seconds
	MaxWait         int // seconds
}

type CompositorConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

// VendorConfig bounds every outbound vendor call.
type VendorConfig struct {
	CallTimeout int // seconds
}

type PipelineConfig struct {
	ImageConcurrency int
	QueueConcurrency int
}

// Timeout returns the per-call vendor deadline.
func (c VendorConfig) Timeout() time.Duration {
	if c.CallTimeout <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.CallTimeout) * time.Second
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("DATABASE_URL")
	readSecret("JWT_SECRET")
	readSecret("TEXT_API_KEY")
	readSecret("ELEVENLABS_API_KEY")
	readSecret("FAL_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("MINIO_ACCESS_KEY")
	readSecret("MINIO_SECRET_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":                "SERVER_PORT",
		"server.env":                 "SERVER_ENV",
		"server.log_level":           "LOG_LEVEL",
		"server.api_domain":          "API_DOMAIN",
		"redis.addr":                 "REDIS_ADDR",
		"redis.password":             "REDIS_PASSWORD",
		"redis.db":                   "REDIS_DB",
		"jwt.secret":                 "JWT_SECRET",
		"jwt.expiration":             "JWT_EXPIRATION",
		"zitadel.domain":             "ZITADEL_DOMAIN",
		"zitadel.client_id":          "ZITADEL_CLIENT_ID",
		"zitadel.issuer":             "ZITADEL_ISSUER",
		"gateway.enabled":            "GATEWAY_ENABLED",
		"store.driver":               "STORE_DRIVER",
		"store.database_url":         "DATABASE_URL",
		"storage.driver":             "STORAGE_DRIVER",
		"r2.account_id":              "R2_ACCOUNT_ID",
		"r2.access_key_id":           "R2_ACCESS_KEY_ID",
		"r2.secret_access_key":       "R2_SECRET_ACCESS_KEY",
		"r2.bucket_name":             "R2_BUCKET_NAME",
		"r2.public_url":              "R2_PUBLIC_URL",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.access_key":           "MINIO_ACCESS_KEY",
		"minio.secret_key":           "MINIO_SECRET_KEY",
		"minio.bucket":               "MINIO_BUCKET",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"text.api_key":               "TEXT_API_KEY",
		"text.base_url":              "TEXT_BASE_URL",
		"text.model":                 "TEXT_MODEL",
		"elevenlabs.api_key":         "ELEVENLABS_API_KEY",
		"elevenlabs.base_url":        "ELEVENLABS_BASE_URL",
		"elevenlabs.model":           "ELEVENLABS_MODEL",
		"elevenlabs.output_format":   "ELEVENLABS_OUTPUT_FORMAT",
		"fal.api_key":                "FAL_KEY",
		"fal.base_url":               "FAL_BASE_URL",
		"fal.image_model":            "FAL_IMAGE_MODEL",
		"fal.lipsync_model":          "FAL_LIPSYNC_MODEL",
		"fal.transcribe_model":       "FAL_TRANSCRIBE_MODEL",
		"fal.poll_interval":          "FAL_POLL_INTERVAL",
		"fal.max_wait":               "FAL_MAX_WAIT",
		"compositor.service_url":     "COMPOSITOR_SERVICE_URL",
		"compositor.timeout":         "COMPOSITOR_TIMEOUT",
		"vendor.call_timeout":        "VENDOR_CALL_TIMEOUT",
		"pipeline.image_concurrency": "PIPELINE_IMAGE_CONCURRENCY",
		"pipeline.queue_concurrency": "PIPELINE_QUEUE_CONCURRENCY",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	setDefaults(v)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("gateway.enabled", false)

	v.SetDefault("ratelimit.script_per_min", 20)
	v.SetDefault("ratelimit.audio_per_hour", 30)
	v.SetDefault("ratelimit.images_per_hour", 20)
	v.SetDefault("ratelimit.video_per_hour", 10)
	v.SetDefault("ratelimit.pipeline_per_hour", 10)

	v.SetDefault("store.driver", "redis")
	v.SetDefault("storage.driver", "none")
	v.SetDefault("minio.bucket", "videogen")

	// Gemini exposes an OpenAI-compatible surface
	v.SetDefault("text.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("text.model", "gemini-2.0-flash")

	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("elevenlabs.model", "eleven_multilingual_v2")
	v.SetDefault("elevenlabs.output_format", "mp3_44100_128")

	v.SetDefault("fal.base_url", "https://queue.fal.run")
	v.SetDefault("fal.image_model", "fal-ai/flux-pro/v1.1")
	v.SetDefault("fal.lipsync_model", "fal-ai/sync-lipsync")
	v.SetDefault("fal.transcribe_model", "fal-ai/whisper")
	v.SetDefault("fal.poll_interval", 3)
	v.SetDefault("fal.max_wait", 600)

	v.SetDefault("compositor.service_url", "http://localhost:8085")
	v.SetDefault("compositor.timeout", 300)

	v.SetDefault("vendor.call_timeout", 120)
	v.SetDefault("pipeline.image_concurrency", 4)
	v.SetDefault("pipeline.queue_concurrency", 4)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			ApiDomain: v.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		Zitadel: ZitadelConfig{
			Domain:   v.GetString("zitadel.domain"),
			ClientID: v.GetString("zitadel.client_id"),
			Issuer:   v.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			ScriptPerMin:    v.GetInt("ratelimit.script_per_min"),
			AudioPerHour:    v.GetInt("ratelimit.audio_per_hour"),
			ImagesPerHour:   v.GetInt("ratelimit.images_per_hour"),
			VideoPerHour:    v.GetInt("ratelimit.video_per_hour"),
			PipelinePerHour: v.GetInt("ratelimit.pipeline_per_hour"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(v.GetString("store.driver")),
			DatabaseURL: v.GetString("store.database_url"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("storage.driver")),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("minio.endpoint"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseSSL:    v.GetBool("minio.use_ssl"),
		},
		Text: TextConfig{
			APIKey:  v.GetString("text.api_key"),
			BaseURL: v.GetString("text.base_url"),
			Model:   v.GetString("text.model"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:       v.GetString("elevenlabs.api_key"),
			BaseURL:      v.GetString("elevenlabs.base_url"),
			Model:        v.GetString("elevenlabs.model"),
			OutputFormat: v.GetString("elevenlabs.output_format"),
		},
		Fal: FalConfig{
			APIKey:          v.GetString("fal.api_key"),
			BaseURL:         v.GetString("fal.base_url"),
			ImageModel:      v.GetString("fal.image_model"),
			LipSyncModel:    v.GetString("fal.lipsync_model"),
			TranscribeModel: v.GetString("fal.transcribe_model"),
			PollInterval:    v.GetInt("fal.poll_interval"),
			MaxWait:         v.GetInt("fal.max_wait"),
		},
		Compositor: CompositorConfig{
			ServiceURL: v.GetString("compositor.service_url"),
			Timeout:    v.GetInt("compositor.timeout"),
		},
		Vendor: VendorConfig{
			CallTimeout: v.GetInt("vendor.call_timeout"),
		},
		Pipeline: PipelineConfig{
			ImageConcurrency: v.GetInt("pipeline.image_concurrency"),
			QueueConcurrency: v.GetInt("pipeline.queue_concurrency"),
		},
	}
}
