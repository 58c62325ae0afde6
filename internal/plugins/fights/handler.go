package fights

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// Handler serves the fight endpoints.
type Handler struct {
	service FightService
}

// NewHandler creates a new fight handler.
func NewHandler(service FightService) *Handler {
	return &Handler{service: service}
}

// Create records a fight (POST /fights).
func (h *Handler) Create(c echo.Context) error {
	var req CreateFightRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	f, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

// List returns fights, newest first (GET /fights).
func (h *Handler) List(c echo.Context) error {
	fights, err := h.service.List(c.Request().Context(), c.QueryParam("include_inactive") == "true")
	if err != nil {
		return err
	}
	if fights == nil {
		fights = []Fight{}
	}
	return c.JSON(http.StatusOK, fights)
}

// Get returns one fight (GET /fights/:id).
func (h *Handler) Get(c echo.Context) error {
	id, err := fightID(c)
	if err != nil {
		return err
	}
	f, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// Deactivate soft-deletes a fight (PATCH /fights/:id/deactivate).
func (h *Handler) Deactivate(c echo.Context) error {
	id, err := fightID(c)
	if err != nil {
		return err
	}
	f, err := h.service.Deactivate(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func fightID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid fight ID")
	}
	return id, nil
}
