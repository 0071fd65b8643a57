package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/service"
)

type CompetitionService interface {
	Create(ctx context.Context, in service.CompetitionInput) (model.Competition, error)
	Update(ctx context.Context, id uint64, in service.CompetitionInput) (model.Competition, error)
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64, includeDrafts bool) (model.Competition, error)
	List(ctx context.Context, status model.CompetitionStatus, includeDrafts bool) ([]model.Competition, error)
	SetStatus(ctx context.Context, id uint64, status model.CompetitionStatus, override bool) (model.Competition, error)
	UpdateAll(ctx context.Context, bypassOverride bool) ([]service.StatusChange, error)
	Preview(ctx context.Context) ([]service.StatusPreview, error)
}

type LeaderboardService interface {
	Get(ctx context.Context, competitionID uint64, limit int) (service.Leaderboard, error)
}

type ResultService interface {
	Finalize(ctx context.Context, competitionID uint64) ([]model.Result, error)
	List(ctx context.Context, competitionID uint64) ([]model.Result, error)
}

// CompetitionHandler serves the public competition pages and the admin
// lifecycle endpoints.
type CompetitionHandler struct {
	Competitions CompetitionService
	Leaderboards LeaderboardService
	Results      ResultService
}

func NewCompetitionHandler(c CompetitionService, l LeaderboardService, r ResultService) *CompetitionHandler {
	return &CompetitionHandler{Competitions: c, Leaderboards: l, Results: r}
}

type setStatusReq struct {
	Status   model.CompetitionStatus `json:"status" validate:"required"`
	Override bool                    `json:"override"`
}

// List returns published competitions, optionally filtered by ?status=.
func (h *CompetitionHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Competitions.List(ctx, model.CompetitionStatus(c.QueryParam("status")), false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AdminList includes drafts.
func (h *CompetitionHandler) AdminList(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Competitions.List(ctx, model.CompetitionStatus(c.QueryParam("status")), true)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CompetitionHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	comp, err := h.Competitions.Get(ctx, id, isAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, comp)
}

// Leaderboard is only available once a competition is completed.
func (h *CompetitionHandler) Leaderboard(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", service.DefaultLeaderboardLimit)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	lb, err := h.Leaderboards.Get(ctx, id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, lb)
}

func (h *CompetitionHandler) ListResults(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Results.List(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CompetitionHandler) Create(c echo.Context) error {
	var in service.CompetitionInput
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	comp, err := h.Competitions.Create(ctx, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, comp)
}

func (h *CompetitionHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var in service.CompetitionInput
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	comp, err := h.Competitions.Update(ctx, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, comp)
}

func (h *CompetitionHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Competitions.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus is the manual admin transition, optionally pinning the status.
func (h *CompetitionHandler) SetStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req setStatusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	comp, err := h.Competitions.SetStatus(ctx, id, req.Status, req.Override)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, comp)
}

// UpdateStatuses runs the status updater; ?bypass=true includes pinned
// competitions.
func (h *CompetitionHandler) UpdateStatuses(c echo.Context) error {
	bypass, err := queryBool(c, "bypass")
	if err != nil {
		return writeError(c, err)
	}
	return h.runUpdater(c, bypass)
}

func (h *CompetitionHandler) runUpdater(c echo.Context, bypass bool) error {
	// No requestTimeout here: the batch covers every open competition.
	changes, err := h.Competitions.UpdateAll(c.Request().Context(), bypass)
	if err != nil {
		return writeError(c, err)
	}
	failed := 0
	for _, ch := range changes {
		if !ch.Success {
			failed++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"changes": changes, "updated": len(changes) - failed, "failed": failed})
}

// CronCompetitionStatus is the scheduler entry point. Pinned competitions
// are never touched from here.
func (h *CompetitionHandler) CronCompetitionStatus(c echo.Context) error {
	return h.runUpdater(c, false)
}

func (h *CompetitionHandler) PreviewStatuses(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Competitions.Preview(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CompetitionHandler) FinalizeResults(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Results.Finalize(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
