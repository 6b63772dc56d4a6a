package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage/memory"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tok, err := BearerToken("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok)

	tok, err = BearerToken("bearer   xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, bad := range []string{"", "Basic abc", "Bearer", "Bearer "} {
		_, err := BearerToken(bad)
		assert.ErrorIs(t, err, ErrUnauthenticated, "header %q", bad)
	}
}

func TestTokenManagerRoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", "ahorro-backend", time.Hour)
	tok, err := tm.Generate("id-1", "ana@example.com")
	require.NoError(t, err)

	claims, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "id-1", claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestTokenManagerRejectsExpiredAndForged(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("secret", "ahorro-backend", -time.Minute)
	tok, err := tm.Generate("id-1", "")
	require.NoError(t, err)
	_, err = tm.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other := NewTokenManager("other-secret", "ahorro-backend", time.Hour)
	forged, err := other.Generate("id-1", "")
	require.NoError(t, err)
	tm = NewTokenManager("secret", "ahorro-backend", time.Hour)
	_, err = tm.Verify(forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGatewayAdminChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	tm := NewTokenManager("secret", "ahorro-backend", time.Hour)
	gw := NewGateway(tm, store, store)

	admin, err := store.CreateIdentity(ctx, models.Identity{Email: "admin@example.com"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertRole(ctx, admin.ID, models.RoleAdmin))

	member, err := store.CreateIdentity(ctx, models.Identity{Email: "member@example.com"})
	require.NoError(t, err)
	require.NoError(t, store.UpsertRole(ctx, member.ID, models.RoleMember))

	adminToken, err := tm.Generate(admin.ID, admin.Email)
	require.NoError(t, err)
	memberToken, err := tm.Generate(member.ID, member.Email)
	require.NoError(t, err)

	got, err := gw.Admin(ctx, "Bearer "+adminToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = gw.Admin(ctx, "Bearer "+memberToken)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = gw.Admin(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = gw.Admin(ctx, "Bearer not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireAdminMissingRoleIsMember(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	tm := NewTokenManager("secret", "ahorro-backend", time.Hour)
	gw := NewGateway(tm, store, store)

	identity, err := store.CreateIdentity(ctx, models.Identity{Email: "norole@example.com"})
	require.NoError(t, err)

	err = gw.RequireAdmin(ctx, identity)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestResolveIdentityUnknownSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	tm := NewTokenManager("secret", "ahorro-backend", time.Hour)
	gw := NewGateway(tm, store, store)

	tok, err := tm.Generate("ghost", "")
	require.NoError(t, err)
	_, err = gw.ResolveIdentity(ctx, tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
