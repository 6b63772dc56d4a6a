// Package auth resolves bearer credentials to identities and enforces the
// admin-role requirement on the management surface.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// ErrUnauthenticated means no credential, or an invalid/expired one.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden means the caller is authenticated but not an admin.
var ErrForbidden = errors.New("forbidden")

var bearerRe = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// BearerToken extracts the credential from a raw Authorization header value.
func BearerToken(headerValue string) (string, error) {
	m := bearerRe.FindStringSubmatch(headerValue)
	if m == nil {
		return "", ErrUnauthenticated
	}
	return m[1], nil
}

// Gateway runs the full auth chain: credential, identity, then role. Every
// admin-only operation goes through it before touching storage.
type Gateway struct {
	tokens     *TokenManager
	identities storage.IdentityStore
	records    storage.RecordStore
}

// NewGateway constructs the gateway.
func NewGateway(tokens *TokenManager, identities storage.IdentityStore, records storage.RecordStore) *Gateway {
	return &Gateway{tokens: tokens, identities: identities, records: records}
}

// ResolveIdentity validates a credential and loads the identity it names.
func (g *Gateway) ResolveIdentity(ctx context.Context, token string) (models.Identity, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return models.Identity{}, ErrUnauthenticated
	}
	identity, err := g.identities.GetIdentityByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, ErrUnauthenticated
		}
		return models.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	return identity, nil
}

// RequireAdmin checks the identity's role. A missing role row reads as
// member (forbidden), not as an error; a failed lookup is an upstream error.
func (g *Gateway) RequireAdmin(ctx context.Context, identity models.Identity) error {
	role, err := g.records.GetRole(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("role lookup: %w", err)
	}
	if models.NormalizeRole(role) != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// Admin resolves the bearer header value all the way to an admin identity.
func (g *Gateway) Admin(ctx context.Context, headerValue string) (models.Identity, error) {
	token, err := BearerToken(headerValue)
	if err != nil {
		return models.Identity{}, err
	}
	identity, err := g.ResolveIdentity(ctx, token)
	if err != nil {
		return models.Identity{}, err
	}
	if err := g.RequireAdmin(ctx, identity); err != nil {
		return models.Identity{}, err
	}
	return identity, nil
}
