package storage

import (
	"context"
	"errors"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrOverridesUnavailable indicates the optional goal-overrides table is not
// deployed. Callers treat it as "no overrides", never as a failure.
var ErrOverridesUnavailable = errors.New("goal overrides unavailable")

// IdentityStore holds authentication principals. It is deliberately separate
// from RecordStore: there is no transaction spanning the two, which is why
// provisioning compensates with explicit undo steps.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity models.Identity) (models.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (models.Identity, error)
	ListIdentities(ctx context.Context, limit int) ([]models.Identity, error)
	UpdateIdentityEmail(ctx context.Context, id, email string) error
	UpdateIdentityPassword(ctx context.Context, id, passwordHash string) error
	DeleteIdentity(ctx context.Context, id string) error
}

// RecordStore provides keyed CRUD over the application tables. Each call is
// atomic for its own table only.
type RecordStore interface {
	GetRole(ctx context.Context, identityID string) (string, error)
	UpsertRole(ctx context.Context, identityID, role string) error
	DeleteRole(ctx context.Context, identityID string) error
	ListRoles(ctx context.Context) ([]models.Role, error)

	InsertPersona(ctx context.Context, persona models.Persona) (models.Persona, error)
	GetPersona(ctx context.Context, personaID string) (models.Persona, error)
	GetPersonaByIdentity(ctx context.Context, identityID string) (models.Persona, error)
	ListPersonas(ctx context.Context) ([]models.Persona, error)
	UpdatePersonaName(ctx context.Context, personaID, nombre string) error
	EnforcePersonaGoal(ctx context.Context, identityID string) error
	DeletePersonaByIdentity(ctx context.Context, identityID string) error

	InsertContribution(ctx context.Context, c models.Contribution) (models.Contribution, error)
	ListContributionsByRange(ctx context.Context, start, end, personaID string) ([]models.Contribution, error)
	LatestContributions(ctx context.Context, start, end string, limit int) ([]models.Contribution, error)
	ContributionYearBounds(ctx context.Context, personaID string) (minYear, maxYear int, err error)

	GoalOverridesForYear(ctx context.Context, year int) (map[string]int64, error)
	OverridesAvailable() bool
}
