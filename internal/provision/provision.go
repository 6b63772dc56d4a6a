// Package provision orchestrates the multi-record lifecycle of a member:
// identity, role row, and persona profile. The identity store and record
// store share no transaction, so the create path compensates explicitly.
package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ahorrofamiliar/ahorro-be/internal/models"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage"
)

// ErrSelfDelete rejects deleting the caller's own identity.
var ErrSelfDelete = errors.New("No puedes eliminar tu propio usuario")

// ErrAdminDelete rejects deleting an identity whose role is admin.
var ErrAdminDelete = errors.New("No se puede eliminar un admin")

// ValidationError marks input failures detected before any side effect.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalid(msg string) error { return &ValidationError{msg: msg} }

var emailRe = regexp.MustCompile(`^\S+@\S+\.[A-Za-z]{2,}$`)

// listPageSize bounds the identity fetch; one page is enough for a
// household-sized member directory.
const listPageSize = 200

// Service is the identity provisioner.
type Service struct {
	identities storage.IdentityStore
	records    storage.RecordStore
	log        *logger.Logger
}

// NewService constructs the provisioner.
func NewService(identities storage.IdentityStore, records storage.RecordStore, log *logger.Logger) *Service {
	return &Service{identities: identities, records: records, log: log}
}

// CreateMemberInput is the validated payload for member creation.
type CreateMemberInput struct {
	Email      string
	Password   string
	Nombre     string
	Frecuencia string
}

// CreateMember creates an identity with its role row and persona profile.
// The flow never creates admins: the role is always forced to member. If any
// step after identity creation fails, completed steps are undone in reverse
// so no login-capable identity is left without a profile.
func (s *Service) CreateMember(ctx context.Context, in CreateMemberInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	nombre := strings.TrimSpace(in.Nombre)
	if email == "" {
		return "", invalid("Email is required")
	}
	if len(in.Password) < 6 {
		return "", invalid("Password must be at least 6 characters")
	}
	if nombre == "" {
		return "", invalid("Nombre is required")
	}
	frecuencia, err := schedule.ParseFrequencyStrict(in.Frecuencia)
	if err != nil {
		return "", invalid("frecuencia inválida")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	var identityID string
	sg := &saga{}
	err = sg.run(ctx,
		sagaStep{
			name: "create identity",
			run: func(ctx context.Context) error {
				created, err := s.identities.CreateIdentity(ctx, models.Identity{
					Email:        email,
					PasswordHash: string(hash),
					Confirmed:    true,
				})
				if err != nil {
					return err
				}
				identityID = created.ID
				return nil
			},
			undo: func(ctx context.Context) error {
				return s.identities.DeleteIdentity(ctx, identityID)
			},
		},
		sagaStep{
			name: "insert role",
			run: func(ctx context.Context) error {
				return s.records.UpsertRole(ctx, identityID, models.RoleMember)
			},
			undo: func(ctx context.Context) error {
				return s.records.DeleteRole(ctx, identityID)
			},
		},
		sagaStep{
			name: "insert persona",
			run: func(ctx context.Context) error {
				_, err := s.records.InsertPersona(ctx, models.Persona{
					IdentityID: identityID,
					Nombre:     nombre,
					Frecuencia: frecuencia,
				})
				return err
			},
			undo: func(ctx context.Context) error {
				return s.records.DeletePersonaByIdentity(ctx, identityID)
			},
		},
		sagaStep{
			// Defensive write: pins the goal even if a storage-side default
			// or trigger altered it on insert.
			name: "enforce goal",
			run: func(ctx context.Context) error {
				return s.records.EnforcePersonaGoal(ctx, identityID)
			},
		},
	)
	if err != nil {
		s.log.Error("create member failed", "email", email, "error", err)
		return "", err
	}
	s.log.Info("member created", "user_id", identityID)
	return identityID, nil
}

// UpdateMemberInput is the payload for member updates. Email and Password
// are optional; empty means unchanged.
type UpdateMemberInput struct {
	IdentityID string
	Nombre     string
	Email      string
	Password   string
}

// UpdateMember renames (or creates) the persona, then applies email and
// password changes to the identity independently. There is no compensation
// on this path: a late failure leaves earlier writes in place by design.
func (s *Service) UpdateMember(ctx context.Context, in UpdateMemberInput) error {
	if strings.TrimSpace(in.IdentityID) == "" {
		return invalid("user_id is required")
	}
	nombre := strings.TrimSpace(in.Nombre)
	if nombre == "" {
		return invalid("nombre is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if in.Password != "" && len(in.Password) < 6 {
		return invalid("Password must be at least 6 characters")
	}
	if email != "" && !emailRe.MatchString(email) {
		return invalid("Email inválido")
	}

	persona, err := s.records.GetPersonaByIdentity(ctx, in.IdentityID)
	switch {
	case err == nil:
		if err := s.records.UpdatePersonaName(ctx, persona.ID, nombre); err != nil {
			return fmt.Errorf("update persona: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		if _, err := s.records.InsertPersona(ctx, models.Persona{
			IdentityID: in.IdentityID,
			Nombre:     nombre,
			Frecuencia: schedule.Monthly,
		}); err != nil {
			return fmt.Errorf("insert persona: %w", err)
		}
		if err := s.records.EnforcePersonaGoal(ctx, in.IdentityID); err != nil {
			return fmt.Errorf("enforce goal: %w", err)
		}
	default:
		return fmt.Errorf("get persona: %w", err)
	}

	if email != "" {
		if err := s.identities.UpdateIdentityEmail(ctx, in.IdentityID, email); err != nil {
			return fmt.Errorf("update email: %w", err)
		}
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := s.identities.UpdateIdentityPassword(ctx, in.IdentityID, string(hash)); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
	}
	return nil
}

// DeleteMember removes an identity and its dependent records. The persona
// goes first so its aportes are cleaned up by the store's cascade; the role
// delete is best-effort; the identity goes last. If the persona delete
// fails, nothing past it is touched.
func (s *Service) DeleteMember(ctx context.Context, callerID, targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return invalid("user_id is required")
	}
	if targetID == callerID {
		return ErrSelfDelete
	}

	role, err := s.records.GetRole(ctx, targetID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("role lookup: %w", err)
	}
	if models.NormalizeRole(role) == models.RoleAdmin {
		return ErrAdminDelete
	}

	if err := s.records.DeletePersonaByIdentity(ctx, targetID); err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	if err := s.records.DeleteRole(ctx, targetID); err != nil {
		s.log.Warn("delete role failed, continuing", "user_id", targetID, "error", err)
	}
	if err := s.identities.DeleteIdentity(ctx, targetID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	s.log.Info("member deleted", "user_id", targetID)
	return nil
}

// ListMembers returns the member directory: identities left-joined with
// their role and persona rows, defaults filled in, admins and the caller
// excluded, sorted ascending by email.
func (s *Service) ListMembers(ctx context.Context, callerID string) ([]models.MemberRow, error) {
	var (
		identities []models.Identity
		roles      []models.Role
		personas   []models.Persona
		errs       [3]error
		wg         sync.WaitGroup
	)
	// Three read-only, order-independent fetches.
	wg.Add(3)
	go func() {
		defer wg.Done()
		identities, errs[0] = s.identities.ListIdentities(ctx, listPageSize)
	}()
	go func() {
		defer wg.Done()
		roles, errs[1] = s.records.ListRoles(ctx)
	}()
	go func() {
		defer wg.Done()
		personas, errs[2] = s.records.ListPersonas(ctx)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
	}

	roleByID := make(map[string]string, len(roles))
	for _, r := range roles {
		roleByID[r.IdentityID] = r.Role
	}
	personaByID := make(map[string]models.Persona, len(personas))
	for _, p := range personas {
		personaByID[p.IdentityID] = p
	}

	rows := make([]models.MemberRow, 0, len(identities))
	for _, identity := range identities {
		role := models.NormalizeRole(roleByID[identity.ID])
		// Admins are managed outside this surface; the caller is excluded
		// unconditionally.
		if identity.ID == callerID || role == models.RoleAdmin {
			continue
		}
		row := models.MemberRow{
			UserID:     identity.ID,
			Email:      identity.Email,
			Role:       role,
			MetaAnual:  schedule.SavingsTotal,
			Frecuencia: schedule.Monthly,
		}
		if p, ok := personaByID[identity.ID]; ok {
			row.PersonaID = p.ID
			row.Nombre = p.Nombre
			row.Frecuencia = p.Frecuencia
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Email < rows[j].Email })
	return rows, nil
}
