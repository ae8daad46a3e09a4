package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/model"
	"github.com/videogen/api/internal/store"
)

var (
	voiceSampleExts  = map[string]bool{".mp3": true, ".wav": true, ".m4a": true}
	profileVideoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true}
)

// AssetOptions tunes vendor calls made by the asset stage.
type AssetOptions struct {
	CallTimeout      time.Duration
	ImageConcurrency int
}

// AssetService produces speech, voices, images, B-roll and transcripts.
type AssetService struct {
	projects    store.ProjectStore
	profiles    store.ProfileStore
	speech      client.SpeechSynthesizer
	images      client.ImageGenerator
	transcriber client.Transcriber
	storage     client.StorageClient
	httpClient  *http.Client
	opts        AssetOptions
}

// NewAssetService wires the asset stage. Nil or unconfigured vendors are
// replaced by mocks.
func NewAssetService(
	projects store.ProjectStore,
	profiles store.ProfileStore,
	speech client.SpeechSynthesizer,
	images client.ImageGenerator,
	transcriber client.Transcriber,
	storage client.StorageClient,
	opts AssetOptions,
) *AssetService {
	if speech == nil || !speech.IsConfigured() {
		speech = mockSpeech{}
	}
	if images == nil || !images.IsConfigured() {
		images = mockImages{}
	}
	if transcriber != nil && !transcriber.IsConfigured() {
		transcriber = nil
	}
	if storage == nil {
		storage = client.NewMockStorage("")
	}
	if opts.ImageConcurrency <= 0 {
		opts.ImageConcurrency = 4
	}
	return &AssetService{
		projects:    projects,
		profiles:    profiles,
		speech:      speech,
		images:      images,
		transcriber: transcriber,
		storage:     storage,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		opts:        opts,
	}
}

// SynthesizeSpeech voices the project script with the caller's cloned voice
// and stores the audio URL. Status is left as is.
func (s *AssetService) SynthesizeSpeech(ctx context.Context, caller model.Caller, projectID string) (string, error) {
	project, err := loadOwned(ctx, s.projects, caller, projectID)
	if err != nil {
		return "", err
	}
	voiceID, err := s.voiceFor(ctx, caller)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(project.Script) == "" {
		return "", apperr.Validation("project has no script", nil)
	}

	log := logging.Stage(ctx, "speech", projectID)
	audioURL, err := s.synthesize(ctx, voiceID, project.Script, fmt.Sprintf("audio/%s/%s.mp3", projectID, uuid.New().String()))
	if err != nil {
		log.WithError(err).Error("speech synthesis failed")
		return "", err
	}

	if _, err := s.projects.Update(ctx, projectID, model.ProjectPatch{AudioURL: &audioURL}); err != nil {
		return "", storeError(err)
	}

	log.WithField("audio_url", audioURL).Info("speech synthesized")
	return audioURL, nil
}

// SynthesizeText voices free text that is not attached to a project.
func (s *AssetService) SynthesizeText(ctx context.Context, caller model.Caller, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("text is required", nil)
	}
	voiceID, err := s.voiceFor(ctx, caller)
	if err != nil {
		return "", err
	}
	return s.synthesize(ctx, voiceID, text, fmt.Sprintf("audio/users/%s/%s.mp3", caller.UserID, uuid.New().String()))
}

func (s *AssetService) voiceFor(ctx context.Context, caller model.Caller) (string, error) {
	profile, err := s.profiles.GetProfile(ctx, caller.UserID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.Internal("failed to load profile", err)
	}
	if profile == nil || profile.VoiceID == "" {
		return "", apperr.NotFound("voice ID not found for user")
	}
	return profile.VoiceID, nil
}

func (s *AssetService) synthesize(ctx context.Context, voiceID, text, key string) (string, error) {
	callCtx, cancel := withCallTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	audio, err := s.speech.Synthesize(callCtx, voiceID, text)
	if err != nil {
		return "", apperr.Upstream("elevenlabs", err)
	}
	if len(audio) == 0 {
		return "", apperr.Upstream("elevenlabs", errors.New("empty audio response"))
	}

	audioURL, err := s.storage.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg")
	if err != nil {
		return "", apperr.Upstream("storage", err)
	}
	return audioURL, nil
}

// RegisterVoice clones the caller's voice from an mp3, wav or m4a sample
// referenced by URL or storage key, and records the voice on the profile.
func (s *AssetService) RegisterVoice(ctx context.Context, caller model.Caller, sampleRef, name string) (string, error) {
	sampleRef = strings.TrimSpace(sampleRef)
	if sampleRef == "" {
		return "", apperr.Validation("valid audio file reference is required", nil)
	}
	filename, err := refFilename(sampleRef)
	if err != nil {
		return "", apperr.Validation("invalid audio file reference", nil)
	}
	if !voiceSampleExts[strings.ToLower(path.Ext(filename))] {
		return "", apperr.Validation("unsupported audio format", map[string]string{"allowed": ".mp3, .wav, .m4a"})
	}

	key, ok := s.storageKey(sampleRef)
	if !ok {
		return "", apperr.Validation("audio file must be uploaded to project storage", nil)
	}
	sampleURL, err := s.storage.GetSignedURL(ctx, key, 15*time.Minute)
	if err != nil {
		return "", apperr.Upstream("storage", err)
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{"stage": "voice", "user_id": caller.UserID})

	sample, err := client.Download(ctx, s.httpClient, sampleURL)
	if err != nil {
		log.WithError(err).Warn("voice sample download failed")
		return "", apperr.NotFound("audio file not found")
	}

	if name == "" {
		name = caller.UserID
	}

	callCtx, cancel := withCallTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	voiceID, err := s.speech.AddVoice(callCtx, name, filename, bytes.NewReader(sample))
	if err != nil {
		log.WithError(err).Error("voice registration failed")
		return "", apperr.Upstream("elevenlabs", err)
	}

	if err := s.profiles.SetVoiceID(ctx, caller.UserID, voiceID); err != nil {
		return "", apperr.Internal("failed to save voice ID", err)
	}

	log.WithField("voice_id", voiceID).Info("voice registered")
	return voiceID, nil
}

// SetProfileVideo uploads the caller's talking-head source video.
func (s *AssetService) SetProfileVideo(ctx context.Context, caller model.Caller, filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !profileVideoExts[ext] {
		return "", apperr.Validation("unsupported video format", map[string]string{"allowed": ".mp4, .mov, .webm"})
	}

	key := fmt.Sprintf("profiles/%s/%s%s", caller.UserID, uuid.New().String(), ext)
	videoURL, err := s.storage.Upload(ctx, key, body, client.ContentTypeFor(key))
	if err != nil {
		return "", apperr.Upstream("storage", err)
	}
	if err := s.profiles.SetVideoURL(ctx, caller.UserID, videoURL); err != nil {
		return "", apperr.Internal("failed to save profile video", err)
	}
	return videoURL, nil
}

// GetProfile returns the caller's profile, empty when nothing is registered yet.
func (s *AssetService) GetProfile(ctx context.Context, caller model.Caller) (*model.UserProfile, error) {
	profile, err := s.profiles.GetProfile(ctx, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &model.UserProfile{UserID: caller.UserID}, nil
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	return profile, nil
}

// GenerateImages renders one image per prompt concurrently and replaces the
// project's generated images with whatever succeeded.
func (s *AssetService) GenerateImages(ctx context.Context, caller model.Caller, projectID string) (*model.ImageGenerateResponse, error) {
	project, err := loadOwned(ctx, s.projects, caller, projectID)
	if err != nil {
		return nil, err
	}
	prompts := project.Prompts()
	if len(prompts) == 0 {
		prompts = brollPrompts(project.Keywords)
	}
	if len(prompts) == 0 {
		return nil, apperr.Validation("no image prompts found in project", nil)
	}

	urls, failed, err := s.fanOut(ctx, "images", projectID, prompts)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.Update(ctx, projectID, model.ProjectPatch{GeneratedImages: &urls}); err != nil {
		return nil, storeError(err)
	}
	return &model.ImageGenerateResponse{ImageURLs: urls, ImageCount: len(urls), FailedCount: failed}, nil
}

// GenerateBrollImages renders one photographic still per keyword into BrollImages.
func (s *AssetService) GenerateBrollImages(ctx context.Context, caller model.Caller, projectID string) (*model.ImageGenerateResponse, error) {
	project, err := loadOwned(ctx, s.projects, caller, projectID)
	if err != nil {
		return nil, err
	}
	if len(project.Keywords) == 0 {
		return nil, apperr.Validation("no keywords found in project", nil)
	}

	prompts := brollPrompts(project.Keywords)

	urls, failed, err := s.fanOut(ctx, "broll", projectID, prompts)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.Update(ctx, projectID, model.ProjectPatch{BrollImages: &urls}); err != nil {
		return nil, storeError(err)
	}
	return &model.ImageGenerateResponse{ImageURLs: urls, ImageCount: len(urls), FailedCount: failed}, nil
}

func (s *AssetService) fanOut(ctx context.Context, stage, projectID string, prompts []string) ([]string, int, error) {
	log := logging.Stage(ctx, stage, projectID)
	log.WithField("prompts", len(prompts)).Info("generating images")

	results := generateAll(ctx, s.images, prompts, s.opts.ImageConcurrency, s.opts.CallTimeout)
	for _, r := range results {
		if r.Err != nil {
			log.WithError(r.Err).WithField("prompt", apperr.Truncate(r.Prompt, 80)).Warn("image generation failed")
		}
	}

	urls, failed, err := CollectURLs(results)
	if err != nil {
		log.Error("no images generated")
		return nil, failed, err
	}
	log.WithFields(logrus.Fields{"generated": len(urls), "failed": failed}).Info("images generated")
	return urls, failed, nil
}

func brollPrompts(keywords []string) []string {
	prompts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		prompts = append(prompts, brollPrompt(k))
	}
	return prompts
}

func brollPrompt(keyword string) string {
	return fmt.Sprintf("Cinematic B-roll photograph of %s, natural light, shallow depth of field, vertical 9:16 framing", keyword)
}

// Transcribe produces word timings for the project audio and aligns scenes onto them.
func (s *AssetService) Transcribe(ctx context.Context, caller model.Caller, projectID string) (*model.TranscribeResponse, error) {
	project, err := loadOwned(ctx, s.projects, caller, projectID)
	if err != nil {
		return nil, err
	}
	if project.AudioURL == "" {
		return nil, apperr.Precondition("project has no audio; synthesize speech first")
	}

	transcriber := s.transcriber
	if transcriber == nil {
		transcriber = mockTranscriber{script: project.Script}
	}

	callCtx, cancel := withCallTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	words, duration, err := transcriber.Transcribe(callCtx, project.AudioURL)
	if err != nil {
		logging.Stage(ctx, "transcribe", projectID).WithError(err).Error("transcription failed")
		return nil, apperr.Upstream("fal", err)
	}

	patch := model.ProjectPatch{Transcript: &words, AudioDuration: &duration}
	var timed []model.TimedScene
	if len(project.Scenes) > 0 {
		timed = AlignScenes(project.Scenes, words, duration)
		patch.TimedScenes = &timed
	}
	if _, err := s.projects.Update(ctx, projectID, patch); err != nil {
		return nil, storeError(err)
	}

	return &model.TranscribeResponse{Transcript: words, TimedScenes: timed, AudioDuration: duration}, nil
}

func isHTTPURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// storageKey turns a sample reference into a key in project storage. URLs are
// accepted only under the storage public URL so the server never fetches
// arbitrary hosts.
func (s *AssetService) storageKey(ref string) (string, bool) {
	if !isHTTPURL(ref) {
		key := strings.TrimLeft(ref, "/")
		return key, key != "" && !strings.Contains(ref, "://")
	}
	base := strings.TrimRight(s.storage.GetPublicURL(""), "/") + "/"
	if !strings.HasPrefix(ref, base) {
		return "", false
	}
	key := strings.TrimPrefix(ref, base)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}

// refFilename returns the last path element of a URL or storage key.
func refFilename(ref string) (string, error) {
	p := ref
	if isHTTPURL(ref) {
		u, err := url.Parse(ref)
		if err != nil {
			return "", err
		}
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return "", fmt.Errorf("no filename in %q", ref)
	}
	return name, nil
}
