package pickups

import (
	"strings"
	"time"

	"github.com/google/uuid"

	internalpickups "github.com/angelmondragon/collectz-backend/internal/pickups"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
)

type createPickupRequest struct {
	ScheduledDate string  `json:"scheduled_date" validate:"required"`
	TimeWindow    string  `json:"time_window" validate:"required,max=50"`
	WasteType     *string `json:"waste_type,omitempty"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (req createPickupRequest) toInput() (internalpickups.CreatePickupInput, error) {
	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return internalpickups.CreatePickupInput{}, err
	}
	input := internalpickups.CreatePickupInput{
		ScheduledDate: scheduled,
		TimeWindow:    req.TimeWindow,
		Notes:         req.Notes,
	}
	if req.WasteType != nil && strings.TrimSpace(*req.WasteType) != "" {
		wasteType, err := enums.ParseWasteType(*req.WasteType)
		if err != nil {
			return internalpickups.CreatePickupInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid waste type")
		}
		input.WasteType = &wasteType
	}
	return input, nil
}

// parseScheduledDate accepts a calendar day or a full RFC3339 timestamp.
func parseScheduledDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.DateOnly, raw); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "scheduled_date must be YYYY-MM-DD")
	}
	return parsed, nil
}

type completePickupRequest struct {
	PhotoProofURL string  `json:"photo_proof_url" validate:"required,max=2048"`
	BinID         *string `json:"bin_id,omitempty"`
}

func (req completePickupRequest) toInput() (internalpickups.CompletePickupInput, error) {
	input := internalpickups.CompletePickupInput{PhotoProofURL: strings.TrimSpace(req.PhotoProofURL)}
	if req.BinID != nil && strings.TrimSpace(*req.BinID) != "" {
		binID, err := uuid.Parse(strings.TrimSpace(*req.BinID))
		if err != nil {
			return internalpickups.CompletePickupInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bin id")
		}
		input.BinID = &binID
	}
	return input, nil
}

type ratePickupRequest struct {
	Score   int     `json:"score" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}
