package models

import (
	"time"

	"github.com/ahorrofamiliar/ahorro-be/internal/schedule"
)

// Persona is a household member's savings profile, tied to exactly one
// identity. MetaAnual is pinned to schedule.SavingsTotal on every write.
type Persona struct {
	ID            string             `json:"id"`
	IdentityID    string             `json:"user_id"`
	Nombre        string             `json:"nombre"`
	MetaAnual     int64              `json:"meta_anual"`
	Frecuencia    schedule.Frequency `json:"frecuencia"`
	FechaRegistro time.Time          `json:"fecha_registro"`
}

// Contribution is one recorded payment (aporte) toward a persona's annual
// goal. Rows are removed only by the persona's cascading deletion.
type Contribution struct {
	ID            string `json:"id"`
	PersonaID     string `json:"persona_id"`
	Valor         int64  `json:"valor"`
	Fecha         string `json:"fecha"` // YYYY-MM-DD
	PersonaNombre string `json:"persona_nombre,omitempty"`
}

// MemberRow is one entry of the admin member directory: an identity
// left-joined with its role and persona, with member defaults filled in.
type MemberRow struct {
	UserID     string             `json:"user_id"`
	Email      string             `json:"email"`
	Role       string             `json:"role"`
	PersonaID  string             `json:"persona_id,omitempty"`
	Nombre     string             `json:"nombre,omitempty"`
	MetaAnual  int64              `json:"meta_anual"`
	Frecuencia schedule.Frequency `json:"frecuencia"`
}
