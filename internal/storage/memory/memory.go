// Package memory holds an in-memory implementation of the storage
// interfaces, used by tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

var (
	_ storage.IdentityStore = (*Store)(nil)
	_ storage.RecordStore   = (*Store)(nil)
)

// Store keeps every table in process memory.
type Store struct {
	mu            sync.Mutex
	identities    map[string]models.Identity
	roles         map[string]string
	personas      map[string]models.Persona // keyed by persona id
	contributions map[string]models.Contribution
	overrides     map[int]map[string]int64
	hasOverrides  bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		identities:    make(map[string]models.Identity),
		roles:         make(map[string]string),
		personas:      make(map[string]models.Persona),
		contributions: make(map[string]models.Contribution),
		overrides:     make(map[int]map[string]int64),
	}
}

// EnableOverrides turns on the optional goal-overrides feature with the
// given per-year data.
func (s *Store) EnableOverrides(overrides map[int]map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasOverrides = true
	for year, m := range overrides {
		s.overrides[year] = m
	}
}

func (s *Store) CreateIdentity(_ context.Context, identity models.Identity) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if existing.Email == identity.Email {
			return models.Identity{}, storage.ErrAlreadyExists
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	s.identities[identity.ID] = identity
	return identity, nil
}

func (s *Store) GetIdentityByID(_ context.Context, id string) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return models.Identity{}, storage.ErrNotFound
	}
	return identity, nil
}

func (s *Store) GetIdentityByEmail(_ context.Context, email string) (models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.identities {
		if identity.Email == email {
			return identity, nil
		}
	}
	return models.Identity{}, storage.ErrNotFound
}

func (s *Store) ListIdentities(_ context.Context, limit int) ([]models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateIdentityEmail(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return storage.ErrNotFound
	}
	identity.Email = email
	s.identities[id] = identity
	return nil
}

func (s *Store) UpdateIdentityPassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return storage.ErrNotFound
	}
	identity.PasswordHash = passwordHash
	s.identities[id] = identity
	return nil
}

func (s *Store) DeleteIdentity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, id)
	return nil
}

func (s *Store) GetRole(_ context.Context, identityID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[identityID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return role, nil
}

func (s *Store) UpsertRole(_ context.Context, identityID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[identityID] = role
	return nil
}

func (s *Store) DeleteRole(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, identityID)
	return nil
}

func (s *Store) ListRoles(_ context.Context) ([]models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Role, 0, len(s.roles))
	for id, role := range s.roles {
		out = append(out, models.Role{IdentityID: id, Role: role})
	}
	return out, nil
}

func (s *Store) InsertPersona(_ context.Context, persona models.Persona) (models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.personas {
		if existing.IdentityID == persona.IdentityID {
			return models.Persona{}, storage.ErrAlreadyExists
		}
	}
	if persona.ID == "" {
		persona.ID = uuid.NewString()
	}
	if persona.FechaRegistro.IsZero() {
		persona.FechaRegistro = time.Now()
	}
	persona.MetaAnual = schedule.SavingsTotal
	s.personas[persona.ID] = persona
	return persona, nil
}

func (s *Store) GetPersona(_ context.Context, personaID string) (models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	persona, ok := s.personas[personaID]
	if !ok {
		return models.Persona{}, storage.ErrNotFound
	}
	return persona, nil
}

func (s *Store) GetPersonaByIdentity(_ context.Context, identityID string) (models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, persona := range s.personas {
		if persona.IdentityID == identityID {
			return persona, nil
		}
	}
	return models.Persona{}, storage.ErrNotFound
}

func (s *Store) ListPersonas(_ context.Context) ([]models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Persona, 0, len(s.personas))
	for _, persona := range s.personas {
		out = append(out, persona)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaRegistro.Before(out[j].FechaRegistro) })
	return out, nil
}

func (s *Store) UpdatePersonaName(_ context.Context, personaID, nombre string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	persona, ok := s.personas[personaID]
	if !ok {
		return storage.ErrNotFound
	}
	persona.Nombre = nombre
	persona.MetaAnual = schedule.SavingsTotal
	s.personas[personaID] = persona
	return nil
}

func (s *Store) EnforcePersonaGoal(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, persona := range s.personas {
		if persona.IdentityID == identityID {
			persona.MetaAnual = schedule.SavingsTotal
			s.personas[id] = persona
		}
	}
	return nil
}

func (s *Store) DeletePersonaByIdentity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, persona := range s.personas {
		if persona.IdentityID == identityID {
			delete(s.personas, id)
			// FK cascade: aportes go with the persona.
			for cid, c := range s.contributions {
				if c.PersonaID == id {
					delete(s.contributions, cid)
				}
			}
		}
	}
	return nil
}

func (s *Store) InsertContribution(_ context.Context, c models.Contribution) (models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[c.PersonaID]; !ok {
		return models.Contribution{}, storage.ErrNotFound
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.contributions[c.ID] = c
	return c, nil
}

func (s *Store) ListContributionsByRange(_ context.Context, start, end, personaID string) ([]models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Contribution
	for _, c := range s.contributions {
		if c.Fecha < start || c.Fecha > end {
			continue
		}
		if personaID != "" && c.PersonaID != personaID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha > out[j].Fecha })
	return out, nil
}

func (s *Store) LatestContributions(ctx context.Context, start, end string, limit int) ([]models.Contribution, error) {
	all, err := s.ListContributionsByRange(ctx, start, end, "")
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range all {
		if persona, ok := s.personas[all[i].PersonaID]; ok {
			all[i].PersonaNombre = persona.Nombre
		}
	}
	return all, nil
}

func (s *Store) ContributionYearBounds(_ context.Context, personaID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	minYear, maxYear := 0, 0
	for _, c := range s.contributions {
		if personaID != "" && c.PersonaID != personaID {
			continue
		}
		y, ok := schedule.YearFromISODate(c.Fecha)
		if !ok {
			continue
		}
		if minYear == 0 || y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	return minYear, maxYear, nil
}

func (s *Store) GoalOverridesForYear(_ context.Context, year int) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasOverrides {
		return nil, storage.ErrOverridesUnavailable
	}
	out := make(map[string]int64, len(s.overrides[year]))
	for id, goal := range s.overrides[year] {
		out[id] = goal
	}
	return out, nil
}

func (s *Store) OverridesAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasOverrides
}
