package tagtypes

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the administrative tag type endpoints.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/tag-types")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:typeId", h.Get)
	g.PUT("/:typeId", h.Update)
	g.PATCH("/:typeId/deactivate", h.Deactivate)
}
