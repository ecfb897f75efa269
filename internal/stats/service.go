package stats

import (
	"context"
	"fmt"

	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

const topAgentsLimit = 10

// Service exposes the admin reports.
type Service interface {
	Overview(ctx context.Context) (*OverviewDTO, error)
	PickupStats(ctx context.Context, req PickupStatsRequest) (*PickupStatsDTO, error)
	AgentPerformance(ctx context.Context) ([]AgentPerformanceDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the stats service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Overview(ctx context.Context) (*OverviewDTO, error) {
	var out OverviewDTO
	completed := enums.PickupStatusCompleted
	counters := []struct {
		dst *int64
		fn  func(context.Context) (int64, error)
	}{
		{&out.TotalPickups, func(ctx context.Context) (int64, error) { return s.repo.CountPickups(ctx, nil) }},
		{&out.CompletedPickups, func(ctx context.Context) (int64, error) { return s.repo.CountPickups(ctx, &completed) }},
		{&out.Households, s.repo.CountHouseholds},
		{&out.Agents, s.repo.CountAgents},
		{&out.Bins, s.repo.CountBins},
	}
	for _, c := range counters {
		value, err := c.fn(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load overview")
		}
		*c.dst = value
	}
	return &out, nil
}

func (s *service) PickupStats(ctx context.Context, req PickupStatsRequest) (*PickupStatsDTO, error) {
	// Both bounds are inclusive.
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}

	rows, err := s.repo.PickupStatusCounts(ctx, req.From, req.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup stats")
	}

	out := &PickupStatsDTO{
		From:     req.From,
		To:       req.To,
		ByStatus: make(map[enums.PickupStatus]int64),
	}
	for _, status := range enums.PickupStatuses() {
		out.ByStatus[status] = 0
	}
	for _, row := range rows {
		out.ByStatus[row.Status] += row.Total
		out.Total += row.Total
	}
	return out, nil
}

func (s *service) AgentPerformance(ctx context.Context) ([]AgentPerformanceDTO, error) {
	agents, err := s.repo.TopAgents(ctx, topAgentsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent performance")
	}

	out := make([]AgentPerformanceDTO, 0, len(agents))
	for _, agent := range agents {
		row := AgentPerformanceDTO{
			AgentID:               agent.ID,
			KYCStatus:             agent.KYCStatus,
			AverageRating:         agent.AverageRating.StringFixed(2),
			TotalCompletedPickups: agent.TotalCompletedPickups,
		}
		if agent.User != nil {
			row.Name = agent.User.Name
		}
		out = append(out, row)
	}
	return out, nil
}
