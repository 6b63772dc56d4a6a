package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahorrofamiliar/ahorro-be/internal/auth"
	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/provision"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage/memory"
)

type fixture struct {
	ts         *httptest.Server
	store      *memory.Store
	tokens     *auth.TokenManager
	adminID    string
	adminToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	log := logger.NewNop()
	tokens := auth.NewTokenManager("test-secret", "ahorro-backend", time.Hour)
	gateway := auth.NewGateway(tokens, store, store)
	provisioner := provision.NewService(store, store, log)

	mux := http.NewServeMux()
	NewHealthHandler(time.Now()).Register(mux)
	NewLoginHandler(store, store, tokens, log).Register(mux)
	NewMeHandler(gateway, store, log).Register(mux)
	NewMembersHandler(gateway, provisioner, log).Register(mux)
	NewUsersHandler(gateway, provisioner, log).Register(mux)
	NewAportesHandler(gateway, store, log).Register(mux)
	NewSummaryHandler(gateway, store, log).Register(mux)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin, err := store.CreateIdentity(ctx, models.Identity{Email: "admin@example.com", PasswordHash: string(hash), Confirmed: true})
	require.NoError(t, err)
	require.NoError(t, store.UpsertRole(ctx, admin.ID, models.RoleAdmin))

	token, err := tokens.Generate(admin.ID, admin.Email)
	require.NoError(t, err)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &fixture{ts: ts, store: store, tokens: tokens, adminID: admin.ID, adminToken: token}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (f *fixture) createMember(t *testing.T, email, nombre, frecuencia string) string {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/members", f.adminToken, map[string]string{
		"email":      email,
		"password":   "secret1",
		"nombre":     nombre,
		"frecuencia": frecuencia,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	body := decode[map[string]any](t, raw)
	return body["user_id"].(string)
}

func TestCreateMemberAuthChain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// No credential.
	resp, raw := f.do(t, http.MethodPost, "/members", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing bearer token", decode[map[string]string](t, raw)["error"])

	// Garbage credential.
	resp, _ = f.do(t, http.MethodPost, "/members", "not-a-jwt", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Authenticated but not admin.
	memberID := f.createMember(t, "m@example.com", "M", "")
	memberToken, err := f.tokens.Generate(memberID, "m@example.com")
	require.NoError(t, err)
	resp, _ = f.do(t, http.MethodPost, "/members", memberToken, map[string]string{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateMemberSuccessAndValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "quincenal")

	role, err := f.store.GetRole(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, schedule.SavingsTotal, persona.MetaAnual)
	assert.Equal(t, schedule.Biweekly, persona.Frecuencia)

	resp, raw := f.do(t, http.MethodPost, "/members", f.adminToken, map[string]string{
		"email": "x@example.com", "password": "123", "nombre": "X",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password must be at least 6 characters", decode[map[string]string](t, raw)["error"])
}

func TestMembersMethodNotAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/members", f.adminToken, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "POST", resp.Header.Get("Allow"))
}

func TestUsersMethodNotAllowed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPut, "/users", f.adminToken, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, PATCH, DELETE", resp.Header.Get("Allow"))
}

func TestListUsersExcludesAdminsAndCaller(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createMember(t, "zoe@example.com", "Zoe", "")
	f.createMember(t, "ana@example.com", "Ana", "")

	// A second admin, never surfaced.
	boss, err := f.store.CreateIdentity(ctx, models.Identity{Email: "boss@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertRole(ctx, boss.ID, models.RoleAdmin))

	resp, raw := f.do(t, http.MethodGet, "/users", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Users []models.MemberRow `json:"users"`
	}](t, raw)
	require.Len(t, body.Users, 2)
	assert.Equal(t, "ana@example.com", body.Users[0].Email)
	assert.Equal(t, "zoe@example.com", body.Users[1].Email)
	for _, u := range body.Users {
		assert.NotEqual(t, models.RoleAdmin, u.Role)
		assert.NotEqual(t, f.adminID, u.UserID)
	}
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "")

	resp, raw := f.do(t, http.MethodPatch, "/users", f.adminToken, map[string]string{
		"user_id": id,
		"nombre":  "Ana María",
		"email":   "ana.maria@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", persona.Nombre)
	identity, err := f.store.GetIdentityByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ana.maria@example.com", identity.Email)

	resp, raw = f.do(t, http.MethodPatch, "/users", f.adminToken, map[string]string{
		"user_id": id,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "nombre is required", decode[map[string]string](t, raw)["error"])
}

func TestDeleteUserGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Self-delete.
	resp, raw := f.do(t, http.MethodDelete, "/users", f.adminToken, map[string]string{"user_id": f.adminID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No puedes eliminar tu propio usuario", decode[map[string]string](t, raw)["error"])

	// Admin target.
	boss, err := f.store.CreateIdentity(ctx, models.Identity{Email: "boss@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.store.UpsertRole(ctx, boss.ID, models.RoleAdmin))
	resp, raw = f.do(t, http.MethodDelete, "/users", f.adminToken, map[string]string{"user_id": boss.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No se puede eliminar un admin", decode[map[string]string](t, raw)["error"])

	// Missing id.
	resp, _ = f.do(t, http.MethodDelete, "/users", f.adminToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Member target succeeds.
	id := f.createMember(t, "gone@example.com", "Gone", "")
	resp, _ = f.do(t, http.MethodDelete, "/users", f.adminToken, map[string]string{"user_id": id})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	body := decode[map[string]string](t, raw)
	assert.Equal(t, f.adminID, body["user_id"])
	assert.Equal(t, models.RoleAdmin, body["role"])
	assert.NotEmpty(t, body["token"])

	resp, _ = f.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "ghost@example.com", "password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAporteValidatesSchedule(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "quincenal")
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)

	// December is not in the calendar.
	resp, raw := f.do(t, http.MethodPost, "/aportes", f.adminToken, map[string]any{
		"persona_id": persona.ID, "valor": 50000, "fecha": "2025-12-05",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	// The 5th of March is; the amount does not need to match the plan.
	resp, raw = f.do(t, http.MethodPost, "/aportes", f.adminToken, map[string]any{
		"persona_id": persona.ID, "valor": 123, "fecha": "2025-03-05",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = f.do(t, http.MethodGet, "/aportes?year=2025", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Aportes []models.Contribution `json:"aportes"`
	}](t, raw)
	require.Len(t, list.Aportes, 1)
	assert.Equal(t, int64(123), list.Aportes[0].Valor)
}

func TestLatestAportesJoinsNames(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "")
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	_, err = f.store.InsertContribution(ctx, models.Contribution{PersonaID: persona.ID, Valor: 100, Fecha: "2025-02-04"})
	require.NoError(t, err)

	resp, raw := f.do(t, http.MethodGet, "/aportes/latest?year=2025", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Aportes []models.Contribution `json:"aportes"`
	}](t, raw)
	require.Len(t, body.Aportes, 1)
	assert.Equal(t, "Ana", body.Aportes[0].PersonaNombre)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "")
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	_, err = f.store.InsertContribution(ctx, models.Contribution{PersonaID: persona.ID, Valor: 550_000, Fecha: "2025-02-04"})
	require.NoError(t, err)

	resp, raw := f.do(t, http.MethodGet, "/summary?year=2025", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	body := decode[map[string]any](t, raw)
	assert.Equal(t, float64(2025), body["year"])
	assert.Equal(t, float64(schedule.SavingsTotal), body["total_meta"])
	assert.Equal(t, float64(550_000), body["total_aportado"])
	assert.Equal(t, float64(2025), body["min_year"])
	rows := body["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "50.0", row["avance_pct"])
}

func TestExportSummaryCSV(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.createMember(t, "ana@example.com", `Ana "Anita", Pérez`, "")

	resp, raw := f.do(t, http.MethodGet, "/export/summary?year=2025", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "resumen_2025.csv")

	body := string(raw)
	assert.Contains(t, body, `"year","persona","meta_anual","aportado","restante","avance_pct"`)
	assert.Contains(t, body, `"Ana ""Anita"", Pérez"`)
}

func TestExportAportesCSV(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	id := f.createMember(t, "ana@example.com", "Ana", "")
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	_, err = f.store.InsertContribution(ctx, models.Contribution{PersonaID: persona.ID, Valor: 100_000, Fecha: "2025-02-04"})
	require.NoError(t, err)

	path := fmt.Sprintf("/export/aportes?year=2025&persona_id=%s", persona.ID)
	resp, raw := f.do(t, http.MethodGet, path, f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"2025","Ana","2025-02-04","100000","$100.000"`)

	resp, _ = f.do(t, http.MethodGet, "/export/aportes?year=2025", f.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Members see their own persona.
	id := f.createMember(t, "ana@example.com", "Ana", "")
	persona, err := f.store.GetPersonaByIdentity(ctx, id)
	require.NoError(t, err)
	memberToken, err := f.tokens.Generate(id, "ana@example.com")
	require.NoError(t, err)

	resp, raw := f.do(t, http.MethodGet, "/me", memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	body := decode[map[string]string](t, raw)
	assert.Equal(t, id, body["user_id"])
	assert.Equal(t, models.RoleMember, body["role"])
	assert.Equal(t, persona.ID, body["persona_id"])

	// Admins have no persona.
	resp, raw = f.do(t, http.MethodGet, "/me", f.adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]string](t, raw)
	assert.Equal(t, models.RoleAdmin, body["role"])
	assert.Empty(t, body["persona_id"])

	resp, _ = f.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, raw := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, raw)["status"])
}
