package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/collectz-backend/api/responses"
	"github.com/angelmondragon/collectz-backend/api/validators"
	"github.com/angelmondragon/collectz-backend/internal/bins"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

// BinService is the community bin surface consumed by the HTTP layer.
type BinService interface {
	List(ctx context.Context, capacity *enums.BinCapacityLevel) ([]bins.BinDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*bins.BinDTO, error)
	Create(ctx context.Context, input bins.CreateBinInput) (*bins.BinDTO, error)
	UpdateCapacity(ctx context.Context, id uuid.UUID, level enums.BinCapacityLevel) (*bins.BinDTO, error)
	MarkEmptied(ctx context.Context, id uuid.UUID) (*bins.BinDTO, error)
}

type createBinRequest struct {
	LocationName  string           `json:"location_name" validate:"required,max=200"`
	GPSLat        *decimal.Decimal `json:"gps_lat" validate:"required"`
	GPSLng        *decimal.Decimal `json:"gps_lng" validate:"required"`
	CapacityLevel *string          `json:"capacity_level,omitempty"`
}

type updateCapacityRequest struct {
	CapacityLevel string `json:"capacity_level" validate:"required"`
}

func ListBins(svc BinService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bins service unavailable"))
			return
		}

		var capacity *enums.BinCapacityLevel
		if raw := strings.TrimSpace(r.URL.Query().Get("capacity")); raw != "" {
			level, err := enums.ParseBinCapacityLevel(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity level"))
				return
			}
			capacity = &level
		}

		list, err := svc.List(r.Context(), capacity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"bins": list})
	}
}

func BinDetail(svc BinService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bins service unavailable"))
			return
		}

		binID, err := uuidParam(r, "binId", "bin id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bin, err := svc.Get(r.Context(), binID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bin)
	}
}

func AdminCreateBin(svc BinService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bins service unavailable"))
			return
		}

		var body createBinRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bins.CreateBinInput{
			LocationName: validators.SanitizeString(body.LocationName, 200),
			GPSLat:       *body.GPSLat,
			GPSLng:       *body.GPSLng,
		}
		if body.CapacityLevel != nil {
			level, err := enums.ParseBinCapacityLevel(*body.CapacityLevel)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity level"))
				return
			}
			input.CapacityLevel = &level
		}

		bin, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bin)
	}
}

func AdminUpdateBinCapacity(svc BinService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bins service unavailable"))
			return
		}

		binID, err := uuidParam(r, "binId", "bin id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateCapacityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := enums.ParseBinCapacityLevel(body.CapacityLevel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capacity level"))
			return
		}

		bin, err := svc.UpdateCapacity(r.Context(), binID, level)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bin)
	}
}

func AdminMarkBinEmptied(svc BinService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bins service unavailable"))
			return
		}

		binID, err := uuidParam(r, "binId", "bin id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bin, err := svc.MarkEmptied(r.Context(), binID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bin)
	}
}
