package bins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/collectz-backend/pkg/db/models"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// BinDTO is the transport shape of a community bin. Coordinates are decimal
// strings with seven places.
type BinDTO struct {
	ID            uuid.UUID              `json:"id"`
	LocationName  string                 `json:"location_name"`
	GPSLat        string                 `json:"gps_lat"`
	GPSLng        string                 `json:"gps_lng"`
	CapacityLevel enums.BinCapacityLevel `json:"capacity_level"`
	LastEmptiedAt *time.Time             `json:"last_emptied_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type CreateBinInput struct {
	LocationName  string
	GPSLat        decimal.Decimal
	GPSLng        decimal.Decimal
	CapacityLevel *enums.BinCapacityLevel
}

func FromModel(b *models.CommunityBin) BinDTO {
	return BinDTO{
		ID:            b.ID,
		LocationName:  b.LocationName,
		GPSLat:        b.GPSLat.StringFixed(7),
		GPSLng:        b.GPSLng.StringFixed(7),
		CapacityLevel: b.CapacityLevel,
		LastEmptiedAt: b.LastEmptiedAt,
		CreatedAt:     b.CreatedAt,
	}
}

type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bins repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

func (s *Service) List(ctx context.Context, capacity *enums.BinCapacityLevel) ([]BinDTO, error) {
	if capacity != nil && !capacity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid capacity level")
	}
	rows, err := s.repo.List(ctx, capacity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bins")
	}
	out := make([]BinDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BinDTO, error) {
	bin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "load bin")
	}
	dto := FromModel(bin)
	return &dto, nil
}

func (s *Service) Create(ctx context.Context, input CreateBinInput) (*BinDTO, error) {
	name := strings.TrimSpace(input.LocationName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location name required")
	}
	if input.GPSLat.Abs().GreaterThan(maxLatitude) || input.GPSLng.Abs().GreaterThan(maxLongitude) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	level := enums.BinCapacityLow
	if input.CapacityLevel != nil {
		if !input.CapacityLevel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid capacity level")
		}
		level = *input.CapacityLevel
	}

	bin := &models.CommunityBin{
		LocationName:  name,
		GPSLat:        input.GPSLat.Round(7),
		GPSLng:        input.GPSLng.Round(7),
		CapacityLevel: level,
	}
	if err := s.repo.Create(ctx, bin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bin")
	}
	dto := FromModel(bin)
	return &dto, nil
}

func (s *Service) UpdateCapacity(ctx context.Context, id uuid.UUID, level enums.BinCapacityLevel) (*BinDTO, error) {
	if !level.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid capacity level")
	}
	if err := s.repo.UpdateCapacity(ctx, id, level); err != nil {
		return nil, mapError(err, "update bin capacity")
	}
	return s.Get(ctx, id)
}

func (s *Service) MarkEmptied(ctx context.Context, id uuid.UUID) (*BinDTO, error) {
	if err := s.repo.MarkEmptied(ctx, id, s.now().UTC()); err != nil {
		return nil, mapError(err, "mark bin emptied")
	}
	return s.Get(ctx, id)
}

func mapError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bin not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
