package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/service"
)

type RatingService interface {
	Submit(ctx context.Context, userID, photoID uint64, score int) (service.RatingResult, error)
	MyScore(ctx context.Context, userID, photoID uint64) (int, error)
}

type RatingHandler struct {
	Ratings RatingService
}

func NewRatingHandler(r RatingService) *RatingHandler { return &RatingHandler{Ratings: r} }

type rateReq struct {
	Score int `json:"score"`
}

// Submit records or replaces the caller's vote on a photo. Range checks are
// left to the service so the error message is the same for every client.
func (h *RatingHandler) Submit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	photoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req rateReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Ratings.Submit(ctx, uid, photoID, req.Score)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Mine returns the caller's score for a photo, 0 when they have not voted.
func (h *RatingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	photoID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	score, err := h.Ratings.MyScore(ctx, uid, photoID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"photoId": photoID, "score": score})
}
