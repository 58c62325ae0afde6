package votes

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts change request endpoints. voteMW guards ballot
// casting (voter session, rate limiting).
func RegisterRoutes(e *echo.Echo, h *Handler, voteMW ...echo.MiddlewareFunc) {
	e.GET("/fights/:id/change-requests", h.ListForFight)
	e.POST("/fights/:id/change-requests", h.Propose)

	e.GET("/change-requests/:requestId", h.Get)
	e.POST("/change-requests/:requestId/votes", h.CastVote, voteMW...)
}
