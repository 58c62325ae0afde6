package tagtypes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// Handler handles HTTP requests for the tag type registry. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service TagTypeService
}

// NewHandler creates a new tag type handler.
func NewHandler(service TagTypeService) *Handler {
	return &Handler{service: service}
}

// List returns tag types in display order (GET /tag-types).
func (h *Handler) List(c echo.Context) error {
	includeInactive := c.QueryParam("include_inactive") == "true"
	types, err := h.service.List(c.Request().Context(), includeInactive)
	if err != nil {
		return err
	}
	if types == nil {
		types = []TagType{}
	}
	return c.JSON(http.StatusOK, types)
}

// Get returns one tag type (GET /tag-types/:typeId).
func (h *Handler) Get(c echo.Context) error {
	id, err := typeIDParam(c)
	if err != nil {
		return err
	}
	tt, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tt)
}

// Create registers a tag type (POST /tag-types).
func (h *Handler) Create(c echo.Context) error {
	var req CreateTagTypeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	tt, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tt)
}

// Update modifies a tag type (PUT /tag-types/:typeId).
func (h *Handler) Update(c echo.Context) error {
	id, err := typeIDParam(c)
	if err != nil {
		return err
	}
	var req UpdateTagTypeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	tt, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tt)
}

// Deactivate soft-deletes a tag type (PATCH /tag-types/:typeId/deactivate).
func (h *Handler) Deactivate(c echo.Context) error {
	id, err := typeIDParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func typeIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("typeId"))
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid tag type ID")
	}
	return id, nil
}
