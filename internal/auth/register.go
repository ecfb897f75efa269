package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/internal/profiles"
	"github.com/angelmondragon/collectz-backend/internal/users"
	"github.com/angelmondragon/collectz-backend/pkg/db"
	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/security"
)

// RegisterHousehold creates the user and its household profile in one
// transaction, then logs the new user in.
func (s *service) RegisterHousehold(ctx context.Context, req RegisterHouseholdRequest) (*AuthResponse, error) {
	dto := users.CreateUserDTO{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Role:    enums.RoleHousehold,
		Address: req.Address,
		Quarter: req.Quarter,
	}
	return s.register(ctx, dto, req.Password, func(ctx context.Context, repo profiles.Repository, user *models.User) error {
		return repo.CreateHousehold(ctx, &models.HouseholdProfile{
			UserID:        user.ID,
			HouseholdSize: req.HouseholdSize,
		})
	})
}

// RegisterAgent creates the user and an agent profile awaiting KYC review.
func (s *service) RegisterAgent(ctx context.Context, req RegisterAgentRequest) (*AuthResponse, error) {
	dto := users.CreateUserDTO{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Role:  enums.RoleAgent,
	}
	return s.register(ctx, dto, req.Password, func(ctx context.Context, repo profiles.Repository, user *models.User) error {
		return repo.CreateAgent(ctx, &models.AgentProfile{
			UserID:    user.ID,
			KYCStatus: enums.KYCStatusPending,
		})
	})
}

type profileCreator func(ctx context.Context, repo profiles.Repository, user *models.User) error

func (s *service) register(ctx context.Context, dto users.CreateUserDTO, password string, createProfile profileCreator) (*AuthResponse, error) {
	if users.NormalizePhone(dto.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if err := security.ValidatePassword(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	dto.PasswordHash = hash

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := users.NewRepository(tx).Create(ctx, dto)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "phone or email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		if err := createProfile(ctx, profiles.NewRepository(tx), created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
		user = created
		return nil
	})
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register user")
	}

	return s.issue(ctx, user, s.now().UTC())
}
