package votes

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/metrics"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
)

// VoteService defines the business logic contract for change requests.
type VoteService interface {
	// Propose opens a pending change request for a privileged tag.
	Propose(ctx context.Context, fightID int, req ProposeRequest) (*TagChangeRequest, error)

	Get(ctx context.Context, id int) (*TagChangeRequest, error)
	ListForFight(ctx context.Context, fightID int, status string) ([]TagChangeRequest, error)

	// CastVote records one ballot from a voter session and resolves the
	// request when a threshold is reached.
	CastVote(ctx context.Context, requestID int, voterID string, isUpvote bool) (*VoteResult, error)
}

type voteService struct {
	repo             ChangeRequestRepository
	tags             tags.TagRepository
	types            tagtypes.TagTypeService
	metrics          *metrics.Metrics
	defaultThreshold int
}

// NewVoteService creates a new VoteService. defaultThreshold applies to
// requests that do not set their own.
func NewVoteService(repo ChangeRequestRepository, tagRepo tags.TagRepository, types tagtypes.TagTypeService, m *metrics.Metrics, defaultThreshold int) VoteService {
	return &voteService{
		repo:             repo,
		tags:             tagRepo,
		types:            types,
		metrics:          m,
		defaultThreshold: defaultThreshold,
	}
}

// HashSession derives the stored session identifier from a voter token.
func HashSession(voterID string) string {
	sum := blake2b.Sum256([]byte(voterID))
	return hex.EncodeToString(sum[:])
}

// Propose validates the proposal against the fight's current tree, captures
// the live value and inserts a pending request.
func (s *voteService) Propose(ctx context.Context, fightID int, req ProposeRequest) (*TagChangeRequest, error) {
	threshold := s.defaultThreshold
	if req.Threshold != nil {
		if *req.Threshold < MinThreshold || *req.Threshold > MaxThreshold {
			return nil, apperror.NewValidation(fmt.Sprintf("threshold must be between %d and %d", MinThreshold, MaxThreshold))
		}
		threshold = *req.Threshold
	}

	tt, err := s.types.GetByID(ctx, req.TagTypeID)
	if err != nil {
		return nil, err
	}
	if !tt.IsActive {
		return nil, apperror.NewNotFound("tag type not found")
	}
	if tt.Name == tagtypes.NameSupercategory {
		return nil, apperror.NewValidation("supercategory is set when the fight is created and cannot be changed")
	}
	if !tt.IsPrivileged {
		return nil, apperror.NewValidation(fmt.Sprintf("%s tags are edited directly, not through change requests", tt.Name))
	}

	pending, err := s.repo.HasPending(ctx, fightID, tt.ID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if pending {
		return nil, apperror.NewConflict("a change request for this tag is already pending")
	}

	cr := &TagChangeRequest{
		FightID:     fightID,
		TagTypeID:   tt.ID,
		TagTypeName: tt.Name,
		Threshold:   threshold,
		Status:      StatusPending,
	}
	err = s.tags.WithinFight(ctx, fightID, func(store tags.TreeStore) error {
		p, err := tags.Place(ctx, store, fightID, tt, req.ProposedValue, nil)
		if err != nil {
			return err
		}
		live, err := store.FindActiveByType(ctx, fightID, tt.ID)
		if err != nil {
			return err
		}
		if live != nil {
			if live.Value == p.Value {
				return apperror.NewValidation(fmt.Sprintf("%s is already %q", tt.Name, p.Value))
			}
			cr.CurrentValue = &live.Value
		}
		cr.ProposedValue = p.Value
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cr); err != nil {
		return nil, err
	}
	cr.CreatedAt = time.Now().UTC()

	slog.Info("change request proposed",
		slog.Int("request_id", cr.ID),
		slog.Int("fight_id", fightID),
		slog.String("tag_type", tt.Name),
		slog.Int("threshold", threshold),
	)
	return cr, nil
}

// Get returns a change request by ID.
func (s *voteService) Get(ctx context.Context, id int) (*TagChangeRequest, error) {
	return s.repo.FindByID(ctx, id)
}

// ListForFight returns the fight's change requests, optionally by status.
func (s *voteService) ListForFight(ctx context.Context, fightID int, status string) ([]TagChangeRequest, error) {
	var st Status
	if status != "" {
		var ok bool
		if st, ok = ParseStatus(status); !ok {
			return nil, apperror.NewBadRequest("status must be pending, accepted or rejected")
		}
	}

	exists, err := s.tags.FightExists(ctx, fightID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !exists {
		return nil, apperror.NewNotFound("fight not found")
	}

	out, err := s.repo.ListByFight(ctx, fightID, st)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return out, nil
}

// CastVote runs in one transaction holding the request's row lock: insert
// the ballot, recount, and resolve when either side reaches the threshold.
// Acceptance applies the proposed value to the fight's tag tree before the
// transaction commits.
func (s *voteService) CastVote(ctx context.Context, requestID int, voterID string, isUpvote bool) (*VoteResult, error) {
	if voterID == "" {
		return nil, apperror.NewBadRequest("voter session required")
	}

	var (
		result = &VoteResult{}
		pruned int
	)
	err := s.repo.WithinRequest(ctx, requestID, func(rs RequestStore) error {
		cr := rs.Request()
		if cr.Status != StatusPending {
			return apperror.NewConflict(fmt.Sprintf("change request is already %s", cr.Status))
		}

		// A deactivated fight has no live supercategory and nothing a
		// request could apply to.
		tree, err := rs.Tree(ctx)
		if err != nil {
			return err
		}
		root, err := tree.FindActiveByType(ctx, cr.FightID, tagtypes.IDSupercategory)
		if err != nil {
			return err
		}
		if root == nil {
			return apperror.NewConflict("fight is inactive")
		}

		vote := &Vote{RequestID: cr.ID, SessionHash: HashSession(voterID), IsUpvote: isUpvote}
		if err := rs.InsertVote(ctx, vote); err != nil {
			return err
		}

		votesFor, votesAgainst, err := rs.Tally(ctx)
		if err != nil {
			return err
		}
		if err := rs.SaveTally(ctx, votesFor, votesAgainst); err != nil {
			return err
		}
		cr.VotesFor, cr.VotesAgainst = votesFor, votesAgainst
		result.Request = cr

		var outcome Status
		switch {
		case votesFor >= cr.Threshold:
			outcome = StatusAccepted
		case votesAgainst >= cr.Threshold:
			outcome = StatusRejected
		default:
			return nil
		}

		if outcome == StatusAccepted {
			tt, err := s.types.GetByID(ctx, cr.TagTypeID)
			if err != nil {
				return err
			}
			if result.Tag, pruned, err = tags.ApplyValue(ctx, tree, cr.FightID, tt, cr.ProposedValue); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := rs.Resolve(ctx, outcome, now); err != nil {
			return err
		}
		cr.Status = outcome
		cr.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	direction := "down"
	if isUpvote {
		direction = "up"
	}
	s.metrics.VotesCast.WithLabelValues(direction).Inc()

	if cr := result.Request; cr.Status != StatusPending {
		s.metrics.ChangeRequestsResolved.WithLabelValues(string(cr.Status)).Inc()
		if pruned > 0 {
			s.metrics.TagsDeactivated.Add(float64(pruned))
		}
		slog.Info("change request resolved",
			slog.Int("request_id", cr.ID),
			slog.Int("fight_id", cr.FightID),
			slog.String("status", string(cr.Status)),
			slog.Int("votes_for", cr.VotesFor),
			slog.Int("votes_against", cr.VotesAgainst),
			slog.Int("tags_deactivated", pruned),
		)
	}
	return result, nil
}
