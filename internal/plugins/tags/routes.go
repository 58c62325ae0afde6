package tags

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the fight-scoped tag endpoints and the flat
// administrative listing.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	fg := e.Group("/fights/:id/tags")
	fg.GET("", h.ListForFight)
	fg.POST("", h.Add)
	fg.PATCH("/:tagId", h.Update)
	fg.PATCH("/:tagId/deactivate", h.Deactivate)
	fg.DELETE("/:tagId", h.Delete)

	e.GET("/tags", h.List)
	e.GET("/tags/:tagId", h.Get)
}
