package dto

import "github.com/ahorrofamiliar/ahorro-be/internal/models"

type CreateMemberRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Nombre     string `json:"nombre"`
	Frecuencia string `json:"frecuencia"`
}

type CreateMemberResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"user_id"`
}

type UpdateUserRequest struct {
	UserID   string `json:"user_id"`
	Nombre   string `json:"nombre"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

type DeleteUserRequest struct {
	UserID string `json:"user_id"`
}

type ListUsersResponse struct {
	Users []models.MemberRow `json:"users"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CreateAporteRequest struct {
	PersonaID string `json:"persona_id"`
	Valor     int64  `json:"valor"`
	Fecha     string `json:"fecha"`
}
