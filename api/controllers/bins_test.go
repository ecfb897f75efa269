package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/collectz-backend/internal/bins"
	"github.com/angelmondragon/collectz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
)

type stubBinService struct {
	lastCapacity *enums.BinCapacityLevel
	lastCreate   bins.CreateBinInput
	emptied      uuid.UUID
}

func (s *stubBinService) List(ctx context.Context, capacity *enums.BinCapacityLevel) ([]bins.BinDTO, error) {
	s.lastCapacity = capacity
	return []bins.BinDTO{}, nil
}

func (s *stubBinService) Get(ctx context.Context, id uuid.UUID) (*bins.BinDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bin not found")
}

func (s *stubBinService) Create(ctx context.Context, input bins.CreateBinInput) (*bins.BinDTO, error) {
	s.lastCreate = input
	return &bins.BinDTO{ID: uuid.New(), LocationName: input.LocationName}, nil
}

func (s *stubBinService) UpdateCapacity(ctx context.Context, id uuid.UUID, level enums.BinCapacityLevel) (*bins.BinDTO, error) {
	return &bins.BinDTO{ID: id, CapacityLevel: level}, nil
}

func (s *stubBinService) MarkEmptied(ctx context.Context, id uuid.UUID) (*bins.BinDTO, error) {
	s.emptied = id
	return &bins.BinDTO{ID: id}, nil
}

func TestListBinsFiltersByCapacity(t *testing.T) {
	svc := &stubBinService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bins?capacity=full", nil)
	resp := httptest.NewRecorder()
	ListBins(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.lastCapacity)
	assert.Equal(t, enums.BinCapacityFull, *svc.lastCapacity)
}

func TestListBinsRejectsUnknownCapacity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bins?capacity=overflowing", nil)
	resp := httptest.NewRecorder()
	ListBins(&stubBinService{}, logger.Nop())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBinDetailNotFound(t *testing.T) {
	id := uuid.New()
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/v1/bins/"+id.String(), nil), "binId", id.String())
	resp := httptest.NewRecorder()
	BinDetail(&stubBinService{}, logger.Nop())(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdminCreateBinParsesDecimals(t *testing.T) {
	svc := &stubBinService{}
	body := `{"location_name":"Marché Mokolo","gps_lat":"3.8721450","gps_lng":11.5021}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/bins", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AdminCreateBin(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "3.872145", svc.lastCreate.GPSLat.String())
	assert.Equal(t, "11.5021", svc.lastCreate.GPSLng.String())
	assert.Nil(t, svc.lastCreate.CapacityLevel)
}

func TestAdminCreateBinRequiresCoordinates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/bins", strings.NewReader(`{"location_name":"Depot"}`))
	resp := httptest.NewRecorder()
	AdminCreateBin(&stubBinService{}, logger.Nop())(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminMarkBinEmptied(t *testing.T) {
	svc := &stubBinService{}
	id := uuid.New()
	req := addRouteParam(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/bins/"+id.String()+"/emptied", nil), "binId", id.String())
	resp := httptest.NewRecorder()
	AdminMarkBinEmptied(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, svc.emptied)
}
