package auth

import (
	"github.com/angelmondragon/collectz-backend/internal/users"
)

// LoginRequest captures the credentials sent to the login endpoint. Phone is
// the login handle.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,min=6,max=20"`
	Password string `json:"password" validate:"required"`
}

// RegisterHouseholdRequest onboards a waste-generating customer.
type RegisterHouseholdRequest struct {
	Name          string  `json:"name" validate:"required,min=2,max=120"`
	Phone         string  `json:"phone" validate:"required,min=6,max=20"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Password      string  `json:"password" validate:"required,min=8,max=128"`
	Address       *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Quarter       *string `json:"quarter,omitempty" validate:"omitempty,max=120"`
	HouseholdSize *int    `json:"household_size,omitempty" validate:"omitempty,min=1,max=50"`
}

// RegisterAgentRequest onboards a collection agent. KYC starts PENDING.
type RegisterAgentRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	Phone    string  `json:"phone" validate:"required,min=6,max=20"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
}

// RefreshRequest pairs the (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResponse contains the tokens and user produced by login or registration.
type AuthResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// ChangePasswordRequest swaps the caller's password after re-checking the
// current one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UpdateMeRequest carries the self-editable identity fields; omitted fields
// are left unchanged.
type UpdateMeRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
	Quarter *string `json:"quarter,omitempty" validate:"omitempty,max=120"`
}
