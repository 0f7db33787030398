package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/triskcraft/custodian/internal/database/types"
	"go.uber.org/zap"
)

// TokenWriter persists and revokes webhook tokens.
type TokenWriter interface {
	Create(ctx context.Context, token *types.WebhookToken) error
	Delete(ctx context.Context, id string) error
}

// Encrypter seals a plaintext secret into its at-rest payload.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// IssuedToken carries the one-time credentials handed to the requesting
// user. The plaintext secret and signed credential are shown once and are
// not recoverable afterwards.
type IssuedToken struct {
	Token      *types.WebhookToken
	Secret     string
	Credential string
}

// Issuer creates and revokes webhook tokens.
type Issuer struct {
	tokens     TokenWriter
	vault      Encrypter
	signingKey []byte
	logger     *zap.Logger
}

// NewIssuer creates an issuer backed by the given token store and vault.
func NewIssuer(tokens TokenWriter, vault Encrypter, signingKey []byte, logger *zap.Logger) *Issuer {
	return &Issuer{
		tokens:     tokens,
		vault:      vault,
		signingKey: signingKey,
		logger:     logger.Named("webhook_issuer"),
	}
}

// Issue creates a webhook token for a principal: a fresh random secret is
// encrypted for storage and a bearer credential is signed over the token's
// identity and granted permissions.
func (i *Issuer) Issue(
	ctx context.Context, userID snowflake.ID, name string, permissions []Permission,
) (*IssuedToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	secret := hex.EncodeToString(secretBytes)

	payload, err := i.vault.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	perms := make([]string, len(permissions))
	for idx, p := range permissions {
		perms[idx] = string(p)
	}

	token := &types.WebhookToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Secret:      payload,
		Permissions: perms,
	}

	if err := i.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	credential, err := SignClaims(i.signingKey, &TokenClaims{
		TokenID:     token.ID,
		UserID:      userID.String(),
		Permissions: perms,
		Name:        name,
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info("Issued webhook token",
		zap.String("tokenID", token.ID),
		zap.String("name", name),
		zap.Strings("permissions", perms))

	return &IssuedToken{
		Token:      token,
		Secret:     secret,
		Credential: credential,
	}, nil
}

// Revoke deletes a webhook token by its identifier.
func (i *Issuer) Revoke(ctx context.Context, id string) error {
	if err := i.tokens.Delete(ctx, id); err != nil {
		return err
	}

	i.logger.Info("Revoked webhook token", zap.String("tokenID", id))

	return nil
}
