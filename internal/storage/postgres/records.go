package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

const isoDate = "2006-01-02"

// GetRole fetches the role for an identity; ErrNotFound when no row exists.
func (s *Store) GetRole(ctx context.Context, identityID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1;`, identityID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return role, nil
}

// UpsertRole writes the single role row for an identity.
func (s *Store) UpsertRole(ctx context.Context, identityID, role string) error {
	const query = `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role;`
	_, err := s.pool.Exec(ctx, query, identityID, role)
	return err
}

// DeleteRole removes an identity's role row.
func (s *Store) DeleteRole(ctx context.Context, identityID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1;`, identityID)
	return err
}

// ListRoles fetches every role row.
func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, role FROM user_roles;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.IdentityID, &r.Role); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertPersona creates a persona profile. The annual goal column is written
// with the fixed plan constant regardless of the value passed in.
func (s *Store) InsertPersona(ctx context.Context, persona models.Persona) (models.Persona, error) {
	if persona.ID == "" {
		persona.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO personas (id, user_id, nombre, meta_anual, frecuencia)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, nombre, meta_anual, frecuencia, fecha_registro;`
	row := s.pool.QueryRow(ctx, query,
		persona.ID, persona.IdentityID, persona.Nombre, schedule.SavingsTotal, string(persona.Frecuencia))
	return scanPersona(row)
}

// GetPersona fetches a persona by primary key.
func (s *Store) GetPersona(ctx context.Context, personaID string) (models.Persona, error) {
	const query = `
		SELECT id, user_id, nombre, meta_anual, frecuencia, fecha_registro
		FROM personas WHERE id = $1;`
	return scanPersona(s.pool.QueryRow(ctx, query, personaID))
}

// GetPersonaByIdentity fetches the persona owned by an identity.
func (s *Store) GetPersonaByIdentity(ctx context.Context, identityID string) (models.Persona, error) {
	const query = `
		SELECT id, user_id, nombre, meta_anual, frecuencia, fecha_registro
		FROM personas WHERE user_id = $1;`
	return scanPersona(s.pool.QueryRow(ctx, query, identityID))
}

// ListPersonas fetches all personas ordered by registration date.
func (s *Store) ListPersonas(ctx context.Context) ([]models.Persona, error) {
	const query = `
		SELECT id, user_id, nombre, meta_anual, frecuencia, fecha_registro
		FROM personas ORDER BY fecha_registro;`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePersonaName renames a persona and re-pins its goal in the same
// statement.
func (s *Store) UpdatePersonaName(ctx context.Context, personaID, nombre string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE personas SET nombre = $2, meta_anual = $3 WHERE id = $1;`,
		personaID, nombre, schedule.SavingsTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// EnforcePersonaGoal re-applies the fixed annual goal for an identity's
// persona, neutralizing any storage-side default or trigger.
func (s *Store) EnforcePersonaGoal(ctx context.Context, identityID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE personas SET meta_anual = $2 WHERE user_id = $1;`,
		identityID, schedule.SavingsTotal)
	return err
}

// DeletePersonaByIdentity removes an identity's persona; dependent aportes go
// with it via the FK cascade.
func (s *Store) DeletePersonaByIdentity(ctx context.Context, identityID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM personas WHERE user_id = $1;`, identityID)
	return err
}

// InsertContribution records one aporte.
func (s *Store) InsertContribution(ctx context.Context, c models.Contribution) (models.Contribution, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO aportes (id, persona_id, valor, fecha)
		VALUES ($1, $2, $3, $4)
		RETURNING id, persona_id, valor, fecha;`
	row := s.pool.QueryRow(ctx, query, c.ID, c.PersonaID, c.Valor, c.Fecha)
	return scanContribution(row)
}

// ListContributionsByRange fetches aportes within [start, end], optionally
// for one persona, newest first.
func (s *Store) ListContributionsByRange(ctx context.Context, start, end, personaID string) ([]models.Contribution, error) {
	query := `
		SELECT id, persona_id, valor, fecha FROM aportes
		WHERE fecha >= $1 AND fecha <= $2`
	args := []any{start, end}
	if personaID != "" {
		query += ` AND persona_id = $3`
		args = append(args, personaID)
	}
	query += ` ORDER BY fecha DESC;`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestContributions fetches the newest aportes in a range, joined with the
// persona name for display.
func (s *Store) LatestContributions(ctx context.Context, start, end string, limit int) ([]models.Contribution, error) {
	const query = `
		SELECT a.id, a.persona_id, a.valor, a.fecha, p.nombre
		FROM aportes a
		JOIN personas p ON p.id = a.persona_id
		WHERE a.fecha >= $1 AND a.fecha <= $2
		ORDER BY a.fecha DESC
		LIMIT $3;`
	rows, err := s.pool.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contribution
	for rows.Next() {
		var c models.Contribution
		var fecha time.Time
		if err := rows.Scan(&c.ID, &c.PersonaID, &c.Valor, &fecha, &c.PersonaNombre); err != nil {
			return nil, err
		}
		c.Fecha = fecha.Format(isoDate)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContributionYearBounds reports the first and last contribution years,
// optionally scoped to one persona. Zero years mean no contributions exist.
func (s *Store) ContributionYearBounds(ctx context.Context, personaID string) (int, int, error) {
	query := `SELECT MIN(fecha), MAX(fecha) FROM aportes`
	args := []any{}
	if personaID != "" {
		query += ` WHERE persona_id = $1`
		args = append(args, personaID)
	}
	query += `;`

	var minFecha, maxFecha *time.Time
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&minFecha, &maxFecha); err != nil {
		return 0, 0, err
	}
	if minFecha == nil || maxFecha == nil {
		return 0, 0, nil
	}
	return minFecha.Year(), maxFecha.Year(), nil
}

// GoalOverridesForYear fetches per-persona goal overrides when the optional
// table is deployed.
func (s *Store) GoalOverridesForYear(ctx context.Context, year int) (map[string]int64, error) {
	if !s.overridesAvailable {
		return nil, storage.ErrOverridesUnavailable
	}
	rows, err := s.pool.Query(ctx,
		`SELECT persona_id, meta_anual FROM metas_anuales WHERE year = $1;`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var personaID string
		var goal int64
		if err := rows.Scan(&personaID, &goal); err != nil {
			return nil, err
		}
		out[personaID] = goal
	}
	return out, rows.Err()
}

// OverridesAvailable reports the capability decided at construction.
func (s *Store) OverridesAvailable() bool {
	return s.overridesAvailable
}

func scanPersona(row pgx.Row) (models.Persona, error) {
	var p models.Persona
	var frecuencia string
	if err := row.Scan(&p.ID, &p.IdentityID, &p.Nombre, &p.MetaAnual, &frecuencia, &p.FechaRegistro); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Persona{}, storage.ErrNotFound
		}
		return models.Persona{}, err
	}
	p.Frecuencia = schedule.ParseFrequency(frecuencia)
	// Defense-in-depth: the plan goal is fixed; ignore stale stored values.
	p.MetaAnual = schedule.SavingsTotal
	return p, nil
}

func scanContribution(row pgx.Row) (models.Contribution, error) {
	var c models.Contribution
	var fecha time.Time
	if err := row.Scan(&c.ID, &c.PersonaID, &c.Valor, &fecha); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contribution{}, storage.ErrNotFound
		}
		return models.Contribution{}, err
	}
	c.Fecha = fecha.Format(isoDate)
	return c, nil
}
