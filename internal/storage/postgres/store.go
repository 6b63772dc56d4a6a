package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// Ensure Store satisfies both storage interfaces at compile time.
var (
	_ storage.IdentityStore = (*Store)(nil)
	_ storage.RecordStore   = (*Store)(nil)
)

// Store provides Postgres-backed persistence for identities, roles,
// personas, and contributions.
type Store struct {
	pool               *pgxpool.Pool
	overridesAvailable bool
}

// Options tune optional store features.
type Options struct {
	// GoalOverridesEnabled turns on the optional metas_anuales lookup. The
	// table's presence is probed once here; it is never inferred from error
	// text at query time.
	GoalOverridesEnabled bool
}

// NewStore connects a pool, runs migrations, and probes optional features.
func NewStore(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if opts.GoalOverridesEnabled {
		available, err := s.probeOverridesTable(ctx)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s.overridesAvailable = available
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id UUID PRIMARY KEY,
			role TEXT NOT NULL DEFAULT 'member'
		);`,
		`CREATE TABLE IF NOT EXISTS personas (
			id UUID PRIMARY KEY,
			user_id UUID UNIQUE NOT NULL,
			nombre TEXT NOT NULL,
			meta_anual BIGINT NOT NULL DEFAULT 1100000,
			frecuencia TEXT NOT NULL DEFAULT 'mensual',
			fecha_registro TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS aportes (
			id UUID PRIMARY KEY,
			persona_id UUID NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
			valor BIGINT NOT NULL,
			fecha DATE NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS aportes_fecha_idx ON aportes (fecha);`,
		`CREATE INDEX IF NOT EXISTS aportes_persona_idx ON aportes (persona_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// probeOverridesTable checks once whether the optional metas_anuales table is
// deployed.
func (s *Store) probeOverridesTable(ctx context.Context) (bool, error) {
	var regclass *string
	err := s.pool.QueryRow(ctx, `SELECT to_regclass('public.metas_anuales')::text;`).Scan(&regclass)
	if err != nil {
		return false, fmt.Errorf("probe metas_anuales: %w", err)
	}
	return regclass != nil, nil
}

// CreateIdentity inserts a new authentication principal.
func (s *Store) CreateIdentity(ctx context.Context, identity models.Identity) (models.Identity, error) {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO identities (id, email, password_hash, confirmed)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password_hash, confirmed, created_at;`
	row := s.pool.QueryRow(ctx, query, identity.ID, identity.Email, identity.PasswordHash, identity.Confirmed)
	created, err := scanIdentity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Identity{}, storage.ErrAlreadyExists
		}
		return models.Identity{}, err
	}
	return created, nil
}

// GetIdentityByID fetches an identity by primary key.
func (s *Store) GetIdentityByID(ctx context.Context, id string) (models.Identity, error) {
	const query = `
		SELECT id, email, password_hash, confirmed, created_at
		FROM identities WHERE id = $1;`
	return scanIdentity(s.pool.QueryRow(ctx, query, id))
}

// GetIdentityByEmail fetches an identity by email.
func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (models.Identity, error) {
	const query = `
		SELECT id, email, password_hash, confirmed, created_at
		FROM identities WHERE email = $1;`
	return scanIdentity(s.pool.QueryRow(ctx, query, email))
}

// ListIdentities fetches identities ordered by creation, bounded by limit.
func (s *Store) ListIdentities(ctx context.Context, limit int) ([]models.Identity, error) {
	const query = `
		SELECT id, email, password_hash, confirmed, created_at
		FROM identities ORDER BY created_at LIMIT $1;`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

// UpdateIdentityEmail changes an identity's email address.
func (s *Store) UpdateIdentityEmail(ctx context.Context, id, email string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE identities SET email = $2 WHERE id = $1;`, id, email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateIdentityPassword changes an identity's password hash.
func (s *Store) UpdateIdentityPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1;`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteIdentity removes an authentication principal.
func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1;`, id)
	return err
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var identity models.Identity
	if err := row.Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.Confirmed, &identity.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, storage.ErrNotFound
		}
		return models.Identity{}, err
	}
	return identity, nil
}
