package fights

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/fightrules"
	"github.com/buhurtdb/buhurtdb/internal/metrics"
	"github.com/buhurtdb/buhurtdb/internal/sanitize"
)

// ParticipantChecker confirms that fighters and teams exist and are active.
// Satisfied by roster.RosterService.
type ParticipantChecker interface {
	CheckParticipants(ctx context.Context, fighterIDs, teamIDs []int) error
}

// FightService defines the business logic contract for fights.
type FightService interface {
	Create(ctx context.Context, req CreateFightRequest) (*Fight, error)
	Get(ctx context.Context, id int) (*Fight, error)
	List(ctx context.Context, includeInactive bool) ([]Fight, error)

	// Deactivate soft-deletes the fight together with all of its tags and
	// rejects its pending change requests.
	Deactivate(ctx context.Context, id int) (*Fight, error)
}

type fightService struct {
	repo    FightRepository
	roster  ParticipantChecker
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFightService creates a new FightService.
func NewFightService(repo FightRepository, roster ParticipantChecker, m *metrics.Metrics) FightService {
	return &fightService{repo: repo, roster: roster, metrics: m, now: time.Now}
}

// Create validates the request, then records the fight, its supercategory
// tag and participations atomically.
func (s *fightService) Create(ctx context.Context, req CreateFightRequest) (*Fight, error) {
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	location := sanitize.Text(req.Location)
	if location == "" {
		return nil, apperror.NewValidation("location is required")
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return nil, apperror.NewValidation(fmt.Sprintf("location must be at most %d characters", MaxLocationLength))
	}

	sc, err := fightrules.ParseSupercategory(req.Supercategory)
	if err != nil {
		return nil, err
	}

	if err := s.checkParticipations(ctx, sc, req.Participations); err != nil {
		return nil, err
	}

	f := &Fight{
		Date:           date,
		Location:       location,
		Supercategory:  sc,
		Participations: req.Participations,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	if f.Participations == nil {
		f.Participations = []Participation{}
	}

	slog.Info("fight created",
		slog.Int("fight_id", f.ID),
		slog.String("supercategory", string(sc)),
		slog.Int("participants", len(f.Participations)),
	)
	return f, nil
}

// parseDate requires a calendar date that is not after today (UTC).
func (s *fightService) parseDate(raw string) (string, error) {
	if raw == "" {
		return "", apperror.NewValidation("date is required")
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", apperror.NewValidation("date must be formatted as YYYY-MM-DD")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if d.After(today) {
		return "", apperror.NewValidation("date cannot be in the future")
	}
	return d.Format(DateLayout), nil
}

// checkParticipations applies the per-side rules and the roster lookups.
// An empty list is allowed; participants can be unknown for old fights.
func (s *fightService) checkParticipations(ctx context.Context, sc fightrules.Supercategory, parts []Participation) error {
	if len(parts) == 0 {
		return nil
	}

	perSide := make(map[int]int)
	seenFighter := make(map[int]bool, len(parts))
	seenTeam := make(map[int]bool)
	var fighterIDs, teamIDs []int
	for _, p := range parts {
		if p.FighterID <= 0 {
			return apperror.NewValidation("fighter_id is required for every participation")
		}
		if seenFighter[p.FighterID] {
			return apperror.NewValidation(fmt.Sprintf("fighter %d appears more than once", p.FighterID))
		}
		seenFighter[p.FighterID] = true
		fighterIDs = append(fighterIDs, p.FighterID)
		perSide[p.Side]++

		if p.TeamID != nil && !seenTeam[*p.TeamID] {
			seenTeam[*p.TeamID] = true
			teamIDs = append(teamIDs, *p.TeamID)
		}
	}

	if err := fightrules.ValidateSides(sc, perSide); err != nil {
		return err
	}
	return s.roster.CheckParticipants(ctx, fighterIDs, teamIDs)
}

func (s *fightService) Get(ctx context.Context, id int) (*Fight, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Participations == nil {
		f.Participations = []Participation{}
	}
	return f, nil
}

func (s *fightService) List(ctx context.Context, includeInactive bool) ([]Fight, error) {
	fights, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	for i := range fights {
		if fights[i].Participations == nil {
			fights[i].Participations = []Participation{}
		}
	}
	return fights, nil
}

// Deactivate is idempotent; a second call switches nothing further off.
func (s *fightService) Deactivate(ctx context.Context, id int) (*Fight, error) {
	d, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		if d.TagsDeactivated > 0 {
			s.metrics.TagsDeactivated.Add(float64(d.TagsDeactivated))
		}
		if d.RequestsRejected > 0 {
			s.metrics.ChangeRequestsResolved.WithLabelValues("rejected").Add(float64(d.RequestsRejected))
		}
	}
	slog.Info("fight deactivated",
		slog.Int("fight_id", id),
		slog.Int("tags_deactivated", d.TagsDeactivated),
		slog.Int("requests_rejected", d.RequestsRejected),
	)
	return s.Get(ctx, id)
}
