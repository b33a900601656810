// Package auth runs the Flickr web authorization flow: it issues signed
// state for the login redirect, exchanges the returned frob for a token and
// keeps the token in a token store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexbotov/flickrapi/internal/config"
	"github.com/alexbotov/flickrapi/internal/domain"
	"github.com/alexbotov/flickrapi/internal/tokencache"
	"github.com/alexbotov/flickrapi/pkg/flickr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidState  = errors.New("invalid or expired login state")
	ErrNotAuthorized = errors.New("no valid token stored; log in first")
)

// Service provides the web authorization flow
type Service struct {
	client *flickr.Client
	store  tokencache.Store
	config *config.AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new auth service
func New(client *flickr.Client, store tokencache.Store, cfg *config.AuthConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		store:  store,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// LoginURL returns the URL the user is redirected to. It carries a signed
// state token in the extra parameter which the service echoes back.
func (s *Service) LoginURL(perms flickr.Perms) (string, error) {
	if perms == "" {
		perms = s.config.Perms
	}
	state, err := s.issueState(perms)
	if err != nil {
		return "", err
	}
	u := s.client.WebLoginURL(perms, state)
	if u == nil {
		return "", flickr.ErrNoSecret
	}
	return u.String(), nil
}

func (s *Service) issueState(perms flickr.Perms) (string, error) {
	if s.config.StateSecret == "" {
		return "", errors.New("state secret is not configured")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":   uuid.New().String(),
		"perms": string(perms),
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.StateExpiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.StateSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// validateState checks the state signature and expiry and returns the
// permissions it was issued for
func (s *Service) validateState(state string) (flickr.Perms, error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.StateSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidState
	}
	perms, _ := claims["perms"].(string)
	return flickr.Perms(perms), nil
}

// Complete finishes a login: it validates the echoed state, exchanges the
// frob for a token and stores it.
func (s *Service) Complete(ctx context.Context, frob, state string) (*domain.StoredToken, error) {
	if frob == "" {
		return nil, errors.New("frob is required")
	}
	perms, err := s.validateState(state)
	if err != nil {
		return nil, err
	}

	info, err := s.client.GetToken(ctx, frob)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange frob: %w", err)
	}

	token := domain.NewStoredToken(s.client.Credentials().APIKey, info, s.now())
	if perms != "" && !token.Covers(perms) {
		s.logger.Warn("granted permissions below requested",
			"requested", perms, "granted", token.Perms, "user", token.Username)
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("login completed", "user", token.Username, "perms", token.Perms)
	return token, nil
}

// Client returns a client carrying the stored token after confirming it
// with the service. Tokens the service rejects are removed from the store.
func (s *Service) Client(ctx context.Context) (*flickr.Client, *domain.StoredToken, error) {
	apiKey := s.client.Credentials().APIKey
	token, err := s.store.Load(ctx, apiKey)
	if errors.Is(err, tokencache.ErrNotFound) {
		return nil, nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, nil, err
	}

	info, err := s.client.CheckToken(ctx, token.Token)
	if flickr.IsErrorCode(err, flickr.ErrCodeLoginFailed) {
		if ferr := s.store.Forget(ctx, apiKey); ferr != nil {
			s.logger.Warn("failed to forget rejected token", "error", ferr)
		}
		return nil, nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, nil, err
	}

	token.Perms = info.Perms
	return s.client.WithToken(token.Token), token, nil
}

// Logout forgets the stored token
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Forget(ctx, s.client.Credentials().APIKey)
}
