package roster

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/sanitize"
)

const maxNameLength = 100

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// RosterService defines the business logic contract for the roster.
type RosterService interface {
	CreateCountry(ctx context.Context, req CreateCountryRequest) (*Country, error)
	GetCountry(ctx context.Context, id int) (*Country, error)
	ListCountries(ctx context.Context) ([]Country, error)
	DeactivateCountry(ctx context.Context, id int) error

	CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error)
	GetTeam(ctx context.Context, id int) (*Team, error)
	ListTeams(ctx context.Context, countryID int) ([]Team, error)
	DeactivateTeam(ctx context.Context, id int) error

	CreateFighter(ctx context.Context, req CreateFighterRequest) (*Fighter, error)
	GetFighter(ctx context.Context, id int) (*Fighter, error)
	ListFighters(ctx context.Context, teamID int) ([]Fighter, error)
	DeactivateFighter(ctx context.Context, id int) error

	// CheckParticipants returns a validation error naming the first fighter
	// or team that is missing or inactive.
	CheckParticipants(ctx context.Context, fighterIDs, teamIDs []int) error
}

type rosterService struct {
	repo RosterRepository
}

// NewRosterService creates a new RosterService.
func NewRosterService(repo RosterRepository) RosterService {
	return &rosterService{repo: repo}
}

func cleanName(raw, what string) (string, error) {
	name := sanitize.Text(raw)
	if name == "" {
		return "", apperror.NewValidation(what + " name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperror.NewValidation(fmt.Sprintf("%s name must be at most %d characters", what, maxNameLength))
	}
	return name, nil
}

// --- Countries ---

func (s *rosterService) CreateCountry(ctx context.Context, req CreateCountryRequest) (*Country, error) {
	name, err := cleanName(req.Name, "country")
	if err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !countryCodePattern.MatchString(code) {
		return nil, apperror.NewValidation("country code must be two letters (ISO 3166-1 alpha-2)")
	}

	c := &Country{Name: name, Code: code}
	if err := s.repo.CreateCountry(ctx, c); err != nil {
		return nil, err
	}
	slog.Info("country created", slog.Int("country_id", c.ID), slog.String("code", c.Code))
	return c, nil
}

func (s *rosterService) GetCountry(ctx context.Context, id int) (*Country, error) {
	return s.repo.FindCountry(ctx, id)
}

func (s *rosterService) ListCountries(ctx context.Context) ([]Country, error) {
	return s.repo.ListCountries(ctx)
}

func (s *rosterService) DeactivateCountry(ctx context.Context, id int) error {
	if err := s.repo.Deactivate(ctx, tableCountries, id); err != nil {
		return err
	}
	slog.Info("country deactivated", slog.Int("country_id", id))
	return nil
}

// --- Teams ---

func (s *rosterService) CreateTeam(ctx context.Context, req CreateTeamRequest) (*Team, error) {
	name, err := cleanName(req.Name, "team")
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveCountry(ctx, req.CountryID); err != nil {
		return nil, err
	}

	t := &Team{Name: name, CountryID: req.CountryID}
	if err := s.repo.CreateTeam(ctx, t); err != nil {
		return nil, err
	}
	slog.Info("team created", slog.Int("team_id", t.ID), slog.Int("country_id", t.CountryID))
	return t, nil
}

func (s *rosterService) GetTeam(ctx context.Context, id int) (*Team, error) {
	return s.repo.FindTeam(ctx, id)
}

func (s *rosterService) ListTeams(ctx context.Context, countryID int) ([]Team, error) {
	return s.repo.ListTeams(ctx, countryID)
}

func (s *rosterService) DeactivateTeam(ctx context.Context, id int) error {
	if err := s.repo.Deactivate(ctx, tableTeams, id); err != nil {
		return err
	}
	slog.Info("team deactivated", slog.Int("team_id", id))
	return nil
}

// --- Fighters ---

func (s *rosterService) CreateFighter(ctx context.Context, req CreateFighterRequest) (*Fighter, error) {
	name, err := cleanName(req.Name, "fighter")
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveCountry(ctx, req.CountryID); err != nil {
		return nil, err
	}
	if req.TeamID != nil {
		team, err := s.repo.FindTeam(ctx, *req.TeamID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewValidation("team not found")
			}
			return nil, err
		}
		if !team.IsActive {
			return nil, apperror.NewValidation("team is inactive")
		}
	}

	f := &Fighter{Name: name, CountryID: req.CountryID, TeamID: req.TeamID}
	if err := s.repo.CreateFighter(ctx, f); err != nil {
		return nil, err
	}
	slog.Info("fighter created", slog.Int("fighter_id", f.ID))
	return f, nil
}

func (s *rosterService) GetFighter(ctx context.Context, id int) (*Fighter, error) {
	return s.repo.FindFighter(ctx, id)
}

func (s *rosterService) ListFighters(ctx context.Context, teamID int) ([]Fighter, error) {
	return s.repo.ListFighters(ctx, teamID)
}

func (s *rosterService) DeactivateFighter(ctx context.Context, id int) error {
	if err := s.repo.Deactivate(ctx, tableFighters, id); err != nil {
		return err
	}
	slog.Info("fighter deactivated", slog.Int("fighter_id", id))
	return nil
}

// CheckParticipants verifies every id is present and active.
func (s *rosterService) CheckParticipants(ctx context.Context, fighterIDs, teamIDs []int) error {
	if err := s.checkActive(ctx, tableFighters, fighterIDs); err != nil {
		return err
	}
	return s.checkActive(ctx, tableTeams, teamIDs)
}

func (s *rosterService) checkActive(ctx context.Context, table string, ids []int) error {
	active, err := s.repo.ActiveIDs(ctx, table, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !active[id] {
			return apperror.NewValidation(fmt.Sprintf("%s %d not found or inactive", entityNames[table], id))
		}
	}
	return nil
}

func (s *rosterService) requireActiveCountry(ctx context.Context, id int) error {
	c, err := s.repo.FindCountry(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewValidation("country not found")
		}
		return err
	}
	if !c.IsActive {
		return apperror.NewValidation("country is inactive")
	}
	return nil
}
