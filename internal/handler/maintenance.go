package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/service"
)

type MaintenanceService interface {
	DedupeRatings(ctx context.Context) (service.DedupeReport, error)
	RecomputeAggregates(ctx context.Context) (int64, error)
}

type MaintenanceHandler struct {
	Maintenance MaintenanceService
}

func NewMaintenanceHandler(m MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{Maintenance: m}
}

func (h *MaintenanceHandler) DedupeRatings(c echo.Context) error {
	rep, err := h.Maintenance.DedupeRatings(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *MaintenanceHandler) RecomputeAggregates(c echo.Context) error {
	n, err := h.Maintenance.RecomputeAggregates(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"photosRecomputed": n})
}
