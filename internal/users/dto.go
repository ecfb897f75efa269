package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Email       *string        `json:"email,omitempty"`
	Role        enums.UserRole `json:"role"`
	Address     *string        `json:"address,omitempty"`
	Quarter     *string        `json:"quarter,omitempty"`
	IsVerified  bool           `json:"is_verified"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Phone        string
	Email        *string
	PasswordHash string
	Role         enums.UserRole
	Address      *string
	Quarter      *string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Phone:       u.Phone,
		Email:       u.Email,
		Role:        u.Role,
		Address:     u.Address,
		Quarter:     u.Quarter,
		IsVerified:  u.IsVerified,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ToModel converts the DTO into a persistence model. Phone and e-mail are
// normalized so lookups stay case and whitespace insensitive.
func (d CreateUserDTO) ToModel() *models.User {
	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}

	user := &models.User{
		Name:         strings.TrimSpace(d.Name),
		Phone:        NormalizePhone(d.Phone),
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Address:      d.Address,
		Quarter:      d.Quarter,
		IsActive:     active,
	}
	if d.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*d.Email))
		if email != "" {
			user.Email = &email
		}
	}
	return user
}

// NormalizePhone strips spaces and dashes from a phone handle.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(strings.TrimSpace(phone))
}
