package fights

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the fight endpoints. The tag and change request
// plugins hang their own routes under /fights/:id.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/fights", h.List)
	e.POST("/fights", h.Create)
	e.GET("/fights/:id", h.Get)
	e.PATCH("/fights/:id/deactivate", h.Deactivate)
}
