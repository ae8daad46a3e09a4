package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/videogen/api/internal/model"
)

const tokenIssuer = "videogen-api"

var (
	ErrMissingToken  = errors.New("missing authorization header")
	ErrMalformedAuth = errors.New("invalid authorization header format")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrNotConfigured = errors.New("authentication not configured")
)

// LegacyClaims are carried by HMAC-signed session tokens.
type LegacyClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ValidateLegacyToken validates a token using HMAC signing
func ValidateLegacyToken(tokenString, secret string) (*LegacyClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LegacyClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*LegacyClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// IssueLegacyToken signs a session token for userID. A zero ttl means no expiry.
func IssueLegacyToken(secret, userID, email string, ttl time.Duration) (string, error) {
	claims := LegacyClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Authenticator resolves a bearer token to a caller, trying the identity
// provider first and the legacy HMAC secret second.
type Authenticator struct {
	verifier  TokenVerifier
	jwtSecret string
}

func NewAuthenticator(verifier TokenVerifier, jwtSecret string) *Authenticator {
	return &Authenticator{verifier: verifier, jwtSecret: jwtSecret}
}

// Configured reports whether any verification method is available.
func (a *Authenticator) Configured() bool {
	return a.verifier != nil || a.jwtSecret != ""
}

// FromHeader parses an Authorization header value.
func (a *Authenticator) FromHeader(header string) (model.Caller, error) {
	if header == "" {
		return model.Caller{}, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return model.Caller{}, ErrMalformedAuth
	}
	return a.Authenticate(parts[1])
}

// Authenticate validates a raw token.
func (a *Authenticator) Authenticate(tokenString string) (model.Caller, error) {
	if !a.Configured() {
		return model.Caller{}, ErrNotConfigured
	}

	if a.verifier != nil {
		claims, err := a.verifier.Validate(tokenString)
		if err == nil && claims.UserID != "" {
			return model.Caller{UserID: claims.UserID, Email: claims.Email}, nil
		}
		if a.jwtSecret == "" {
			return model.Caller{}, ErrInvalidToken
		}
	}

	claims, err := ValidateLegacyToken(tokenString, a.jwtSecret)
	if err != nil {
		return model.Caller{}, ErrInvalidToken
	}
	return model.Caller{UserID: claims.UserID, Email: claims.Email}, nil
}
