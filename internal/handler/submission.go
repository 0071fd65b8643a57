package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/service"
)

type SubmissionService interface {
	Create(ctx context.Context, in service.NewSubmission) (model.PhotoSubmission, error)
	Review(ctx context.Context, id uint64, status model.SubmissionStatus) (model.PhotoSubmission, error)
	Delete(ctx context.Context, actor service.Actor, id uint64) error
	ListApproved(ctx context.Context, competitionID uint64) ([]model.AuthoredSubmission, error)
	ListMine(ctx context.Context, userID uint64) ([]model.PhotoSubmission, error)
}

type SubmissionHandler struct {
	Submissions    SubmissionService
	MaxUploadBytes int64
}

func NewSubmissionHandler(s SubmissionService, maxUploadBytes int64) *SubmissionHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &SubmissionHandler{Submissions: s, MaxUploadBytes: maxUploadBytes}
}

type reviewReq struct {
	Status model.SubmissionStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ListForCompetition returns the approved photos of a competition.
func (h *SubmissionHandler) ListForCompetition(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Submissions.ListApproved(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// readImage loads the multipart "image" field, refusing files above the
// upload limit without buffering them whole.
func (h *SubmissionHandler) readImage(c echo.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: image file is required", service.ErrValidation)
	}
	if fh.Size > h.MaxUploadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", service.ErrValidation, h.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.MaxUploadBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", service.ErrValidation, h.MaxUploadBytes)
	}
	return data, nil
}

// Create accepts a multipart form with title, description and image.
func (h *SubmissionHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	compID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	// Leave room for the other form fields on top of the image itself.
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxUploadBytes+1<<20)
	data, err := h.readImage(c)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "upload too large"})
		}
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*requestTimeout)
	defer cancel()
	p, err := h.Submissions.Create(ctx, service.NewSubmission{
		UserID:        uid,
		CompetitionID: compID,
		Title:         c.FormValue("title"),
		Description:   c.FormValue("description"),
		Image:         data,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *SubmissionHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Submissions.ListMine(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete is allowed to the owner and to admins.
func (h *SubmissionHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Submissions.Delete(ctx, service.Actor{UserID: uid, Admin: isAdmin(c)}, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Review sets the moderation outcome of a submission.
func (h *SubmissionHandler) Review(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Submissions.Review(ctx, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
