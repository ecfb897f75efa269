package users

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Service is the staff-facing user directory.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, active bool) (*UserDTO, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*UserDTO, error)
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter ListFilter, page, limit int) ([]models.User, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
}

// ListParams is a page/limit request. Zero values fall back to the defaults.
type ListParams struct {
	Role     *enums.UserRole
	IsActive *bool
	Page     int
	Limit    int
}

// PageMeta describes where a page sits in the filtered result set.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type ListResult struct {
	Items []UserDTO `json:"items"`
	Meta  PageMeta  `json:"meta"`
}

// DetailsInput carries the editable identity fields. Nil leaves a field as is;
// an empty string clears the optional ones.
type DetailsInput struct {
	Name    *string
	Email   *string
	Address *string
	Quarter *string
}

// UpdateInput is a staff edit of a user record.
type UpdateInput struct {
	DetailsInput
	IsVerified *bool
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Role != nil && !params.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	rows, total, err := s.repo.List(ctx, ListFilter{Role: params.Role, IsActive: params.IsActive}, page, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{
		Items: items,
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, active bool) (*UserDTO, error) {
	if !active && actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	return s.apply(ctx, userID, map[string]any{"is_active": active})
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*UserDTO, error) {
	fields, err := input.DetailsInput.Columns()
	if err != nil {
		return nil, err
	}
	if input.IsVerified != nil {
		fields["is_verified"] = *input.IsVerified
	}
	return s.apply(ctx, userID, fields)
}

func (s *service) apply(ctx context.Context, userID uuid.UUID, fields map[string]any) (*UserDTO, error) {
	found, err := s.repo.UpdateFields(ctx, userID, fields)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return LoadDTO(ctx, s.repo, userID)
}

type finder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadDTO reads a user and maps a missing row to NotFound.
func LoadDTO(ctx context.Context, repo finder, userID uuid.UUID) (*UserDTO, error) {
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// Columns converts the input into a column map for UpdateFields.
func (in DetailsInput) Columns() (map[string]any, error) {
	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len(name) < 2 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters")
		}
		fields["name"] = name
	}
	if in.Email != nil {
		fields["email"] = optionalColumn(strings.ToLower(*in.Email))
	}
	if in.Address != nil {
		fields["address"] = optionalColumn(*in.Address)
	}
	if in.Quarter != nil {
		fields["quarter"] = optionalColumn(*in.Quarter)
	}
	return fields, nil
}

func optionalColumn(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
