package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/database"
)

// RosterRepository defines the data access contract for countries, teams
// and fighters.
type RosterRepository interface {
	CreateCountry(ctx context.Context, c *Country) error
	FindCountry(ctx context.Context, id int) (*Country, error)
	ListCountries(ctx context.Context) ([]Country, error)

	CreateTeam(ctx context.Context, t *Team) error
	FindTeam(ctx context.Context, id int) (*Team, error)
	ListTeams(ctx context.Context, countryID int) ([]Team, error)

	CreateFighter(ctx context.Context, f *Fighter) error
	FindFighter(ctx context.Context, id int) (*Fighter, error)
	ListFighters(ctx context.Context, teamID int) ([]Fighter, error)

	// Deactivate soft-deletes a row of the given table.
	Deactivate(ctx context.Context, table string, id int) error

	// ActiveIDs returns the subset of ids that exist and are active in table.
	ActiveIDs(ctx context.Context, table string, ids []int) (map[int]bool, error)
}

type rosterRepository struct {
	db *sql.DB
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(db *sql.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// Table names accepted by Deactivate and ActiveIDs.
const (
	tableCountries = "countries"
	tableTeams     = "teams"
	tableFighters  = "fighters"
)

// entityNames maps each roster table to the noun used in error messages.
var entityNames = map[string]string{
	tableCountries: "country",
	tableTeams:     "team",
	tableFighters:  "fighter",
}

func checkTable(table string) error {
	if _, ok := entityNames[table]; !ok {
		return fmt.Errorf("unknown roster table %q", table)
	}
	return nil
}

func insertID(result sql.Result) (int, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return int(id), nil
}

func (r *rosterRepository) CreateCountry(ctx context.Context, c *Country) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO countries (name, code) VALUES (?, ?)`, c.Name, c.Code)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a country with this code already exists")
		}
		return fmt.Errorf("inserting country: %w", err)
	}
	if c.ID, err = insertID(result); err != nil {
		return err
	}
	c.IsActive = true
	return nil
}

func (r *rosterRepository) FindCountry(ctx context.Context, id int) (*Country, error) {
	var c Country
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code, is_active, created_at FROM countries WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Code, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("country not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying country: %w", err)
	}
	return &c, nil
}

func (r *rosterRepository) ListCountries(ctx context.Context) ([]Country, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, code, is_active, created_at FROM countries WHERE is_active = TRUE ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing countries: %w", err)
	}
	defer rows.Close()

	var out []Country
	for rows.Next() {
		var c Country
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning country row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *rosterRepository) CreateTeam(ctx context.Context, t *Team) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO teams (name, country_id) VALUES (?, ?)`, t.Name, t.CountryID)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a team with this name already exists in the country")
		}
		if database.IsMissingReference(err) {
			return apperror.NewValidation("country not found")
		}
		return fmt.Errorf("inserting team: %w", err)
	}
	if t.ID, err = insertID(result); err != nil {
		return err
	}
	t.IsActive = true
	return nil
}

func (r *rosterRepository) FindTeam(ctx context.Context, id int) (*Team, error) {
	var t Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, country_id, is_active, created_at FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CountryID, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("team not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}
	return &t, nil
}

func (r *rosterRepository) ListTeams(ctx context.Context, countryID int) ([]Team, error) {
	query := `SELECT id, name, country_id, is_active, created_at FROM teams WHERE is_active = TRUE`
	var args []any
	if countryID > 0 {
		query += ` AND country_id = ?`
		args = append(args, countryID)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CountryID, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *rosterRepository) CreateFighter(ctx context.Context, f *Fighter) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO fighters (name, country_id, team_id) VALUES (?, ?, ?)`, f.Name, f.CountryID, f.TeamID)
	if err != nil {
		if database.IsMissingReference(err) {
			return apperror.NewValidation("country or team not found")
		}
		return fmt.Errorf("inserting fighter: %w", err)
	}
	if f.ID, err = insertID(result); err != nil {
		return err
	}
	f.IsActive = true
	return nil
}

func scanFighter(row interface{ Scan(...any) error }) (*Fighter, error) {
	var (
		f    Fighter
		team sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.Name, &f.CountryID, &team, &f.IsActive, &f.CreatedAt); err != nil {
		return nil, err
	}
	if team.Valid {
		id := int(team.Int64)
		f.TeamID = &id
	}
	return &f, nil
}

func (r *rosterRepository) FindFighter(ctx context.Context, id int) (*Fighter, error) {
	f, err := scanFighter(r.db.QueryRowContext(ctx,
		`SELECT id, name, country_id, team_id, is_active, created_at FROM fighters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("fighter not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying fighter: %w", err)
	}
	return f, nil
}

func (r *rosterRepository) ListFighters(ctx context.Context, teamID int) ([]Fighter, error) {
	query := `SELECT id, name, country_id, team_id, is_active, created_at FROM fighters WHERE is_active = TRUE`
	var args []any
	if teamID > 0 {
		query += ` AND team_id = ?`
		args = append(args, teamID)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fighters: %w", err)
	}
	defer rows.Close()

	var out []Fighter
	for rows.Next() {
		f, err := scanFighter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fighter row: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Deactivate soft-deletes a roster row.
func (r *rosterRepository) Deactivate(ctx context.Context, table string, id int) error {
	if err := checkTable(table); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET is_active = FALSE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivating %s row: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Either missing or already inactive; only the former is an error.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking %s row: %w", table, err)
		}
		if !exists {
			return apperror.NewNotFound(entityNames[table] + " not found")
		}
	}
	return nil
}

// ActiveIDs returns which of ids exist and are active.
func (r *rosterRepository) ActiveIDs(ctx context.Context, table string, ids []int) (map[int]bool, error) {
	active := make(map[int]bool, len(ids))
	if len(ids) == 0 {
		return active, nil
	}
	if err := checkTable(table); err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE is_active = TRUE AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying active %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s id: %w", table, err)
		}
		active[id] = true
	}
	return active, rows.Err()
}
