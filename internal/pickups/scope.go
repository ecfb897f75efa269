package pickups

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

const (
	ScopeAll  = "all"
	ScopeMine = "mine"
)

// Actor is the authenticated caller as the HTTP layer sees it.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ListFilter is the typed WHERE clause a scope contributes to a list query.
// Nil fields are unconstrained.
type ListFilter struct {
	HouseholdID *uuid.UUID
	AgentID     *uuid.UUID
	Status      *enums.PickupStatus
}

// Scope is the closed set of listing visibilities. Only this package can add
// variants.
type Scope interface {
	Filter() ListFilter
	sealed()
}

// HouseholdScope sees only the household's own pickups.
type HouseholdScope struct {
	HouseholdID uuid.UUID
}

// AgentScope sees every pickup, or only its assignments when MineOnly is set.
type AgentScope struct {
	AgentID  uuid.UUID
	MineOnly bool
}

// AdminScope sees everything. Platform admins and the municipal roles share it.
type AdminScope struct{}

func (s HouseholdScope) Filter() ListFilter {
	id := s.HouseholdID
	return ListFilter{HouseholdID: &id}
}

func (s AgentScope) Filter() ListFilter {
	if !s.MineOnly {
		return ListFilter{}
	}
	id := s.AgentID
	return ListFilter{AgentID: &id}
}

func (AdminScope) Filter() ListFilter {
	return ListFilter{}
}

func (HouseholdScope) sealed() {}
func (AgentScope) sealed() {}
func (AdminScope) sealed() {}

type profileDirectory interface {
	ResolveHouseholdByUser(ctx context.Context, userID uuid.UUID) (*models.HouseholdProfile, error)
	ResolveAgentByUser(ctx context.Context, userID uuid.UUID) (*models.AgentProfile, error)
}

// ResolveScope maps the caller to its scope variant. scopeParam is only
// meaningful for agents; an empty value means all.
func ResolveScope(ctx context.Context, directory profileDirectory, actor Actor, scopeParam string) (Scope, error) {
	scopeParam = strings.ToLower(strings.TrimSpace(scopeParam))
	if scopeParam != "" && scopeParam != ScopeAll && scopeParam != ScopeMine {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope must be all or mine")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	switch actor.Role {
	case enums.RoleHousehold:
		household, err := directory.ResolveHouseholdByUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return HouseholdScope{HouseholdID: household.ID}, nil
	case enums.RoleAgent:
		agent, err := directory.ResolveAgentByUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return AgentScope{AgentID: agent.ID, MineOnly: scopeParam == ScopeMine}, nil
	case enums.RoleAdmin, enums.RoleHysacam, enums.RoleCouncil:
		return AdminScope{}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list pickups")
	}
}
