package votes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/plugins/voters"
)

// Handler handles HTTP requests for change requests and votes.
type Handler struct {
	service VoteService
}

// NewHandler creates a new vote handler.
func NewHandler(service VoteService) *Handler {
	return &Handler{service: service}
}

// Propose opens a change request (POST /fights/:id/change-requests).
func (h *Handler) Propose(c echo.Context) error {
	fightID, err := intParam(c, "id", "invalid fight ID")
	if err != nil {
		return err
	}
	var req ProposeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}

	cr, err := h.service.Propose(c.Request().Context(), fightID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cr)
}

// ListForFight returns a fight's change requests (GET /fights/:id/change-requests).
func (h *Handler) ListForFight(c echo.Context) error {
	fightID, err := intParam(c, "id", "invalid fight ID")
	if err != nil {
		return err
	}
	out, err := h.service.ListForFight(c.Request().Context(), fightID, c.QueryParam("status"))
	if err != nil {
		return err
	}
	if out == nil {
		out = []TagChangeRequest{}
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one change request (GET /change-requests/:requestId).
func (h *Handler) Get(c echo.Context) error {
	id, err := intParam(c, "requestId", "invalid change request ID")
	if err != nil {
		return err
	}
	cr, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cr)
}

// CastVote records a ballot (POST /change-requests/:requestId/votes).
// Requires voters.RequireVoter upstream.
func (h *Handler) CastVote(c echo.Context) error {
	id, err := intParam(c, "requestId", "invalid change request ID")
	if err != nil {
		return err
	}
	var req CastVoteRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	if req.IsUpvote == nil {
		return apperror.NewBadRequest("is_upvote is required")
	}

	result, err := h.service.CastVote(c.Request().Context(), id, voters.GetVoterID(c), *req.IsUpvote)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

func intParam(c echo.Context, name, message string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest(message)
	}
	return id, nil
}
