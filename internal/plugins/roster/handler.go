package roster

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// Handler serves the roster endpoints.
type Handler struct {
	service RosterService
}

// NewHandler creates a new roster handler.
func NewHandler(service RosterService) *Handler {
	return &Handler{service: service}
}

// ListCountries returns active countries (GET /countries).
func (h *Handler) ListCountries(c echo.Context) error {
	countries, err := h.service.ListCountries(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(countries))
}

// CreateCountry adds a country (POST /countries).
func (h *Handler) CreateCountry(c echo.Context) error {
	var req CreateCountryRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	country, err := h.service.CreateCountry(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, country)
}

// GetCountry returns one country (GET /countries/:countryId).
func (h *Handler) GetCountry(c echo.Context) error {
	id, err := intParam(c, "countryId")
	if err != nil {
		return err
	}
	country, err := h.service.GetCountry(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, country)
}

// DeactivateCountry soft-deletes a country (PATCH /countries/:countryId/deactivate).
func (h *Handler) DeactivateCountry(c echo.Context) error {
	id, err := intParam(c, "countryId")
	if err != nil {
		return err
	}
	if err := h.service.DeactivateCountry(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTeams returns active teams, optionally by country (GET /teams?country_id=).
func (h *Handler) ListTeams(c echo.Context) error {
	countryID, err := optionalQueryInt(c, "country_id")
	if err != nil {
		return err
	}
	teams, err := h.service.ListTeams(c.Request().Context(), countryID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(teams))
}

// CreateTeam adds a team (POST /teams).
func (h *Handler) CreateTeam(c echo.Context) error {
	var req CreateTeamRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	team, err := h.service.CreateTeam(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, team)
}

// GetTeam returns one team (GET /teams/:teamId).
func (h *Handler) GetTeam(c echo.Context) error {
	id, err := intParam(c, "teamId")
	if err != nil {
		return err
	}
	team, err := h.service.GetTeam(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, team)
}

// DeactivateTeam soft-deletes a team (PATCH /teams/:teamId/deactivate).
func (h *Handler) DeactivateTeam(c echo.Context) error {
	id, err := intParam(c, "teamId")
	if err != nil {
		return err
	}
	if err := h.service.DeactivateTeam(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFighters returns active fighters, optionally by team (GET /fighters?team_id=).
func (h *Handler) ListFighters(c echo.Context) error {
	teamID, err := optionalQueryInt(c, "team_id")
	if err != nil {
		return err
	}
	fighters, err := h.service.ListFighters(c.Request().Context(), teamID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(fighters))
}

// CreateFighter adds a fighter (POST /fighters).
func (h *Handler) CreateFighter(c echo.Context) error {
	var req CreateFighterRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	fighter, err := h.service.CreateFighter(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, fighter)
}

// GetFighter returns one fighter (GET /fighters/:fighterId).
func (h *Handler) GetFighter(c echo.Context) error {
	id, err := intParam(c, "fighterId")
	if err != nil {
		return err
	}
	fighter, err := h.service.GetFighter(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fighter)
}

// DeactivateFighter soft-deletes a fighter (PATCH /fighters/:fighterId/deactivate).
func (h *Handler) DeactivateFighter(c echo.Context) error {
	id, err := intParam(c, "fighterId")
	if err != nil {
		return err
	}
	if err := h.service.DeactivateFighter(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func intParam(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid ID")
	}
	return id, nil
}

func optionalQueryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, apperror.NewBadRequest("invalid " + name)
	}
	return v, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
