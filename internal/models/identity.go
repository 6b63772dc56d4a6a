package models

import "time"

// Identity is an authentication principal. It is created and deleted only
// through the provisioning flow; handlers never write it directly.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}
