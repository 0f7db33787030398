// Package mojang resolves Minecraft nicknames to profile UUIDs through
// the public Mojang profile API.
package mojang

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	profileEndpoint = "https://api.mojang.com/users/profiles/minecraft/"
	requestTimeout  = 10 * time.Second
	maxRetryElapsed = 30 * time.Second
)

var (
	// ErrProfileNotFound indicates no Minecraft account owns the nickname.
	ErrProfileNotFound = errors.New("minecraft profile not found")
	// ErrUpstream indicates the profile API failed after retries.
	ErrUpstream = errors.New("mojang api unavailable")
)

// Profile is the Mojang account record for a nickname.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client looks up Minecraft profiles with retry on transient failures.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different profile endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a Mojang profile client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: profileEndpoint,
		logger:  logger.Named("mojang"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NicknameToUUID resolves a nickname to its profile UUID. Unknown
// nicknames return ErrProfileNotFound without retrying; server errors
// retry with backoff before giving up.
func (c *Client) NicknameToUUID(ctx context.Context, nickname string) (string, error) {
	operation := func() (string, error) {
		uuid, err := c.fetchProfile(ctx, nickname)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				return "", backoff.Permanent(err)
			}

			c.logger.Warn("Profile lookup failed, retrying",
				zap.String("nickname", nickname),
				zap.Error(err))

			return "", err
		}

		return uuid, nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = maxRetryElapsed

	uuid, err := backoff.RetryWithData(operation, backoff.WithContext(expBackoff, ctx))
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return uuid, nil
}

func (c *Client) fetchProfile(ctx context.Context, nickname string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+url.PathEscape(nickname), nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		// The API has answered both ways for unknown names over time
		return "", ErrProfileNotFound
	default:
		return "", fmt.Errorf("unexpected profile status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read profile response: %w", err)
	}

	var profile Profile
	if err := sonic.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}

	if profile.ID == "" {
		return "", ErrProfileNotFound
	}

	return profile.ID, nil
}
