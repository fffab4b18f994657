package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
)

// ShopHandler serves shop CRUD: the public browse surface plus the
// owner-scoped management endpoints.
type ShopHandler struct {
	Shops *repository.ShopRepo
	Log   *zap.SugaredLogger
}

func NewShopHandler(s *repository.ShopRepo, log *zap.SugaredLogger) *ShopHandler {
	return &ShopHandler{Shops: s, Log: log}
}

type shopReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Address     string  `json:"address"`
	Phone       *string `json:"phone"`
	IsActive    *bool   `json:"is_active"`
}

// Create registers a new shop owned by the caller.
func (h *ShopHandler) Create(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	var req shopReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" || req.Address == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "name and address required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Shops.Create(ctx, model.Shop{
		OwnerID:     actor.UserID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
	})
	if err != nil {
		h.Log.Errorw("create shop failed", "owner_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "create shop failed")
	}

	shop, err := h.Shops.GetByID(ctx, id)
	if err != nil {
		h.Log.Errorw("load shop failed", "shop_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load shop failed")
	}
	return ok(c, http.StatusCreated, shop)
}

// List returns active shops with pagination.  Public, response-cached.
func (h *ShopHandler) List(c echo.Context) error {
	limit, offset := pageParams(c, 20, 100)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	shops, err := h.Shops.ListActive(ctx, limit, offset)
	if err != nil {
		h.Log.Errorw("list shops failed", "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "list shops failed")
	}
	return ok(c, http.StatusOK, shops)
}

// Get returns one shop.  Public.
func (h *ShopHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid shop id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	shop, err := h.Shops.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "shop not found")
	}
	if err != nil {
		h.Log.Errorw("get shop failed", "shop_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "get shop failed")
	}
	return ok(c, http.StatusOK, shop)
}

// Update modifies a shop.  Owners may update their own shops; admins may
// update any.
func (h *ShopHandler) Update(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid shop id")
	}

	var req shopReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	current, err := h.Shops.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "shop not found")
	}
	if err != nil {
		h.Log.Errorw("load shop failed", "shop_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load shop failed")
	}

	// Apply partial updates over the current row.
	if name := strings.TrimSpace(req.Name); name != "" {
		current.Name = name
	}
	if req.Description != nil {
		current.Description = req.Description
	}
	if addr := strings.TrimSpace(req.Address); addr != "" {
		current.Address = addr
	}
	if req.Phone != nil {
		current.Phone = req.Phone
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	ownerID := actor.UserID
	if actor.Role == model.RoleAdmin {
		ownerID = current.OwnerID // admins bypass the ownership check
	}
	if err := h.Shops.Update(ctx, current, ownerID); err != nil {
		if err == repository.ErrForbidden {
			return fail(c, http.StatusForbidden, "forbidden", "shop belongs to another owner")
		}
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "not_found", "shop not found")
		}
		h.Log.Errorw("update shop failed", "shop_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "update shop failed")
	}
	return ok(c, http.StatusOK, current)
}
