package roster

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the country, team and fighter endpoints.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/countries", h.ListCountries)
	e.POST("/countries", h.CreateCountry)
	e.GET("/countries/:countryId", h.GetCountry)
	e.PATCH("/countries/:countryId/deactivate", h.DeactivateCountry)

	e.GET("/teams", h.ListTeams)
	e.POST("/teams", h.CreateTeam)
	e.GET("/teams/:teamId", h.GetTeam)
	e.PATCH("/teams/:teamId/deactivate", h.DeactivateTeam)

	e.GET("/fighters", h.ListFighters)
	e.POST("/fighters", h.CreateFighter)
	e.GET("/fighters/:fighterId", h.GetFighter)
	e.PATCH("/fighters/:fighterId/deactivate", h.DeactivateFighter)
}
