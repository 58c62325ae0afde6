package tags

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// Handler handles HTTP requests for fight tags. Handlers are thin: bind
// request, call service, render response.
type Handler struct {
	service TagService
}

// NewHandler creates a new tag handler.
func NewHandler(service TagService) *Handler {
	return &Handler{service: service}
}

// ListForFight returns a fight's tags (GET /fights/:id/tags).
func (h *Handler) ListForFight(c echo.Context) error {
	fightID, err := intParam(c, "id", "invalid fight ID")
	if err != nil {
		return err
	}
	tags, err := h.service.ListForFight(c.Request().Context(), fightID, c.QueryParam("include_inactive") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(tags))
}

// Add attaches a tag to a fight (POST /fights/:id/tags).
func (h *Handler) Add(c echo.Context) error {
	fightID, err := intParam(c, "id", "invalid fight ID")
	if err != nil {
		return err
	}
	var req AddTagRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}

	tag, err := h.service.Add(c.Request().Context(), fightID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tag)
}

// Update changes a tag's value (PATCH /fights/:id/tags/:tagId).
func (h *Handler) Update(c echo.Context) error {
	fightID, tagID, err := scopedParams(c)
	if err != nil {
		return err
	}
	var req UpdateTagRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}

	tag, err := h.service.Update(c.Request().Context(), fightID, tagID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// Deactivate switches a tag subtree off (PATCH /fights/:id/tags/:tagId/deactivate).
func (h *Handler) Deactivate(c echo.Context) error {
	fightID, tagID, err := scopedParams(c)
	if err != nil {
		return err
	}
	tag, err := h.service.Deactivate(c.Request().Context(), fightID, tagID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// Delete hard-deletes a tag (DELETE /fights/:id/tags/:tagId).
func (h *Handler) Delete(c echo.Context) error {
	fightID, tagID, err := scopedParams(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), fightID, tagID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns tags across fights (GET /tags).
func (h *Handler) List(c echo.Context) error {
	filter := ListFilter{
		TagTypeName:     c.QueryParam("type"),
		IncludeInactive: c.QueryParam("include_inactive") == "true",
	}
	if raw := c.QueryParam("fight_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return apperror.NewBadRequest("invalid fight_id")
		}
		filter.FightID = id
	}

	tags, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(tags))
}

// Get returns one tag (GET /tags/:tagId).
func (h *Handler) Get(c echo.Context) error {
	tagID, err := intParam(c, "tagId", "invalid tag ID")
	if err != nil {
		return err
	}
	tag, err := h.service.Get(c.Request().Context(), tagID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

func scopedParams(c echo.Context) (int, int, error) {
	fightID, err := intParam(c, "id", "invalid fight ID")
	if err != nil {
		return 0, 0, err
	}
	tagID, err := intParam(c, "tagId", "invalid tag ID")
	if err != nil {
		return 0, 0, err
	}
	return fightID, tagID, nil
}

func intParam(c echo.Context, name, message string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest(message)
	}
	return id, nil
}

func nonNil(tags []Tag) []Tag {
	if tags == nil {
		return []Tag{}
	}
	return tags
}
