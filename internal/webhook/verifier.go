package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// MaxClockDrift bounds replay exposure without a nonce cache: a signed
// request is only accepted within this window around the server clock.
// A replay inside the window is indistinguishable from the original.
const MaxClockDrift = 15 * time.Second

// TokenStore resolves a credential's embedded token ID to its stored record.
type TokenStore interface {
	GetByID(ctx context.Context, id string) (*types.WebhookToken, error)
}

// Decrypter recovers the plaintext signing secret from its at-rest payload.
type Decrypter interface {
	Decrypt(payload string) (string, error)
}

// Principal is the authenticated identity a webhook credential represents.
type Principal struct {
	UserID string
}

type principalCtxKey struct{}

type rawBodyCtxKey struct{}

// PrincipalFromContext retrieves the authenticated principal attached by
// the verifier.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey{}).(Principal)
	return principal, ok
}

// RawBodyFromContext retrieves the raw request body captured during
// signature verification so handlers can parse it without a second read.
func RawBodyFromContext(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(rawBodyCtxKey{}).([]byte)
	return body, ok
}

// Verifier authenticates inbound webhook requests. It owns no state; the
// outcome is a pure function of the request, the resolved secret and the
// clock.
type Verifier struct {
	tokens     TokenStore
	vault      Decrypter
	signingKey []byte
	now        func() time.Time
	logger     *zap.Logger
}

// NewVerifier creates a verifier backed by the given token store and vault.
func NewVerifier(tokens TokenStore, vault Decrypter, signingKey []byte, logger *zap.Logger) *Verifier {
	return &Verifier{
		tokens:     tokens,
		vault:      vault,
		signingKey: signingKey,
		now:        time.Now,
		logger:     logger.Named("webhook_auth"),
	}
}

// Require returns a middleware that rejects any request not carrying a
// valid bearer credential with all required permissions, a timestamp
// within the replay window, and a matching body signature. On success the
// principal and the raw body are attached to the request context.
func (v *Verifier) Require(required ...Permission) bunrouter.MiddlewareFunc {
	return func(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
		return func(w http.ResponseWriter, req bunrouter.Request) error {
			credential := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
			if credential == "" || credential == req.Header.Get("Authorization") {
				return BadRequest("Missing bearer credential")
			}

			timestamp, err := strconv.ParseInt(req.Header.Get("X-Timestamp"), 10, 64)
			if err != nil {
				return BadRequest("Invalid timestamp")
			}

			signature := req.Header.Get("X-Signature")
			if signature == "" {
				return BadRequest("Missing signature")
			}

			// Reject outside the replay window before any crypto work
			drift := v.now().UnixMilli() - timestamp*1000
			if drift < 0 {
				drift = -drift
			}

			if drift > MaxClockDrift.Milliseconds() {
				return ErrUnauthorized
			}

			claims, err := ParseClaims(v.signingKey, credential)
			if err != nil {
				return ErrUnauthorized
			}

			if !claims.HasAll(required) {
				return ErrForbidden
			}

			token, err := v.tokens.GetByID(req.Context(), claims.TokenID)
			if err != nil {
				// Unknown token and bad signature share a response
				return ErrUnauthorized
			}

			secret, err := v.vault.Decrypt(token.Secret)
			if err != nil {
				return fmt.Errorf("failed to decrypt token secret: %w", err)
			}

			rawBody, err := io.ReadAll(req.Body)
			if err != nil {
				return BadRequest("Unreadable body")
			}

			req.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

			mac := hmac.New(sha256.New, []byte(secret))
			fmt.Fprintf(mac, "%d.%s", timestamp, rawBody)
			expected := mac.Sum(nil)

			provided, err := hex.DecodeString(signature)
			if err != nil || !hmac.Equal(provided, expected) {
				return ErrUnauthorized
			}

			v.logger.Debug("Authenticated webhook request",
				zap.String("tokenID", claims.TokenID),
				zap.String("principal", claims.UserID))

			ctx := context.WithValue(req.Context(), principalCtxKey{}, Principal{UserID: claims.UserID})
			ctx = context.WithValue(ctx, rawBodyCtxKey{}, rawBody)

			return next(w, req.WithContext(ctx))
		}
	}
}
