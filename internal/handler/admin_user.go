package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/model"
	"github.com/iliyamo/snapscape/internal/repository"
	"github.com/iliyamo/snapscape/internal/service"
)

type UserAdminStore interface {
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateAdminFields(ctx context.Context, id uint64, role *model.Role, active *bool) error
}

// AdminUserHandler lets admins browse users and change role or active flag.
type AdminUserHandler struct {
	Users UserAdminStore
}

func NewAdminUserHandler(u UserAdminStore) *AdminUserHandler { return &AdminUserHandler{Users: u} }

type adminUserReq struct {
	Role     *model.Role `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool       `json:"isActive"`
}

func (h *AdminUserHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeError(c, err)
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Update changes role and/or active flag. Admins cannot demote or
// deactivate themselves.
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req adminUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.Role == nil && req.IsActive == nil {
		return writeError(c, fmt.Errorf("%w: nothing to update", service.ErrValidation))
	}
	if req.Role != nil && !req.Role.Valid() {
		return writeError(c, fmt.Errorf("%w: unknown role %q", service.ErrValidation, *req.Role))
	}
	if self, _ := getUserID(c); self == id {
		if (req.Role != nil && *req.Role != model.RoleAdmin) || (req.IsActive != nil && !*req.IsActive) {
			return writeError(c, fmt.Errorf("%w: admins cannot demote or deactivate themselves", service.ErrConflict))
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	err = h.Users.UpdateAdminFields(ctx, id, req.Role, req.IsActive)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, fmt.Errorf("%w: user %d", service.ErrNotFound, id))
	}
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
