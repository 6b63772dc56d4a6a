// Package account caches the current caller's {identity, role, persona}
// view so UI-driven lookups do not refetch on every navigation. The cache is
// single-caller and not goroutine-shared; it must be cleared synchronously
// whenever the session identity changes.
package account

import (
	"context"
	"errors"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// Resolver supplies the backing lookups the cache reads through to.
type Resolver interface {
	// SessionIdentityID returns the current session's identity id, or ""
	// when nobody is signed in.
	SessionIdentityID(ctx context.Context) (string, error)
	// RoleOf returns the role row for an identity; storage.ErrNotFound means
	// the row is absent and defaults to member.
	RoleOf(ctx context.Context, identityID string) (string, error)
	// PersonaIDOf returns the persona id owned by an identity;
	// storage.ErrNotFound means the identity has no persona.
	PersonaIDOf(ctx context.Context, identityID string) (string, error)
}

// Cache is the per-caller account view. Role and persona sub-fields are only
// trusted when they were resolved for the current identity.
type Cache struct {
	resolver Resolver

	identityID      string
	role            string
	personaID       string
	personaResolved bool
	forIdentityID   string
}

// NewCache builds a cache over the given resolver.
func NewCache(resolver Resolver) *Cache {
	return &Cache{resolver: resolver}
}

// Primed carries values already known by the caller (for example from a
// login response), avoiding a round trip.
type Primed struct {
	IdentityID string
	Role       string
	// PersonaID primes the persona sub-field when non-nil; an empty pointed-to
	// value means "resolved: no persona".
	PersonaID *string
}

// Prime seeds the cache. Priming a different identity id clears the role and
// persona sub-fields so one identity never serves another's cached values.
func (c *Cache) Prime(p Primed) {
	if p.IdentityID != "" {
		if c.identityID != "" && c.identityID != p.IdentityID {
			*c = Cache{resolver: c.resolver, identityID: p.IdentityID}
		} else {
			c.identityID = p.IdentityID
		}
	}
	if p.Role != "" {
		c.role = p.Role
		c.forIdentityID = c.identityID
	}
	if p.PersonaID != nil {
		c.personaID = *p.PersonaID
		c.personaResolved = true
		c.forIdentityID = c.identityID
	}
}

// Clear wipes every cached field, e.g. on sign-out.
func (c *Cache) Clear() {
	*c = Cache{resolver: c.resolver}
}

// IdentityID returns the current identity id, resolving and caching it on
// first use. "" means no session.
func (c *Cache) IdentityID(ctx context.Context) (string, error) {
	if c.identityID != "" {
		return c.identityID, nil
	}
	id, err := c.resolver.SessionIdentityID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		c.identityID = id
	}
	return id, nil
}

// Role returns the caller's role, defaulting to member when the role row is
// absent. "" means no session.
func (c *Cache) Role(ctx context.Context) (string, error) {
	id, err := c.IdentityID(ctx)
	if err != nil || id == "" {
		return "", err
	}
	if c.forIdentityID == id && c.role != "" {
		return c.role, nil
	}
	role, err := c.resolver.RoleOf(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
		role = models.RoleMember
	}
	role = models.NormalizeRole(role)
	c.role = role
	c.forIdentityID = id
	return role, nil
}

// PersonaID returns the caller's persona id, caching the absence of one as a
// resolved "" so it is not refetched. "" with no error means no persona or no
// session.
func (c *Cache) PersonaID(ctx context.Context) (string, error) {
	id, err := c.IdentityID(ctx)
	if err != nil || id == "" {
		return "", err
	}
	if c.forIdentityID == id && c.personaResolved {
		return c.personaID, nil
	}
	personaID, err := c.resolver.PersonaIDOf(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
		personaID = ""
	}
	c.personaID = personaID
	c.personaResolved = true
	c.forIdentityID = id
	return personaID, nil
}
