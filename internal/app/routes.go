package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/middleware"
	"github.com/buhurtdb/buhurtdb/internal/plugins/fights"
	"github.com/buhurtdb/buhurtdb/internal/plugins/roster"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
	"github.com/buhurtdb/buhurtdb/internal/plugins/voters"
	"github.com/buhurtdb/buhurtdb/internal/plugins/votes"
)

// RegisterRoutes builds every plugin and mounts its routes. This is the
// single place where plugins are wired to each other.
func (a *App) RegisterRoutes() {
	e := a.Echo

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	// Tag types: the registry every other plugin consults.
	tagTypeService := tagtypes.NewTagTypeService(tagtypes.NewTagTypeRepository(a.DB))
	tagtypes.RegisterRoutes(e, tagtypes.NewHandler(tagTypeService))

	// Roster: countries, teams, fighters.
	rosterService := roster.NewRosterService(roster.NewRosterRepository(a.DB))
	roster.RegisterRoutes(e, roster.NewHandler(rosterService))

	// Fights: creation writes the supercategory tag.
	fightService := fights.NewFightService(fights.NewFightRepository(a.DB), rosterService, a.Metrics)
	fights.RegisterRoutes(e, fights.NewHandler(fightService))

	// Tags.
	tagRepo := tags.NewTagRepository(a.DB)
	tagService := tags.NewTagService(tagRepo, tagTypeService, a.Metrics)
	tags.RegisterRoutes(e, tags.NewHandler(tagService))

	// Change requests and votes. Voting needs an anonymous session and is
	// rate limited per client IP.
	voterService := voters.NewVoterService(a.Redis, a.Config.Voting.SessionTTL)
	voteService := votes.NewVoteService(
		votes.NewChangeRequestRepository(a.DB),
		tagRepo,
		tagTypeService,
		a.Metrics,
		a.Config.Voting.DefaultThreshold,
	)
	votes.RegisterRoutes(e, votes.NewHandler(voteService),
		middleware.RateLimit(a.Config.Voting.RateLimitPerMinute, time.Minute),
		voters.RequireVoter(voterService, a.Config.Voting.SessionTTL),
	)
}

// healthz reports whether MariaDB and Redis answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = "unavailable"
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = "unavailable"
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
