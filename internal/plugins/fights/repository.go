package fights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/database"
	"github.com/buhurtdb/buhurtdb/internal/fightrules"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
	"github.com/buhurtdb/buhurtdb/internal/plugins/votes"
)

// FightRepository defines the data access contract for fights.
type FightRepository interface {
	// Create inserts the fight, its supercategory tag and its participations
	// in one transaction and fills in ID and CreatedAt.
	Create(ctx context.Context, f *Fight) error

	FindByID(ctx context.Context, id int) (*Fight, error)
	List(ctx context.Context, includeInactive bool) ([]Fight, error)

	// Deactivate soft-deletes the fight and all of its tags, and rejects
	// its pending change requests.
	Deactivate(ctx context.Context, id int) (*Deactivation, error)
}

// Deactivation reports what a fight deactivation switched off.
type Deactivation struct {
	TagsDeactivated  int
	RequestsRejected int
}

type fightRepository struct {
	db *sql.DB
}

// NewFightRepository creates a new FightRepository.
func NewFightRepository(db *sql.DB) FightRepository {
	return &fightRepository{db: db}
}

// fightSelect reads the supercategory off the fight's root tag, which
// survives deactivation as an inactive row.
const fightSelect = `SELECT f.id, f.fight_date, f.location, f.is_active, f.created_at,
	COALESCE((SELECT t.value FROM tags t WHERE t.fight_id = f.id AND t.tag_type_id = ? ORDER BY t.id LIMIT 1), '')
	FROM fights f`

func (r *fightRepository) Create(ctx context.Context, f *Fight) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO fights (fight_date, location) VALUES (?, ?)`, f.Date, f.Location)
		if err != nil {
			return fmt.Errorf("inserting fight: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting last insert id: %w", err)
		}
		f.ID = int(id)

		if err := tags.LockFight(ctx, tx, f.ID); err != nil {
			return err
		}
		if _, err := tags.CreateSupercategoryTag(ctx, tags.NewTreeStore(tx), f.ID, string(f.Supercategory)); err != nil {
			return err
		}
		if err := insertParticipations(ctx, tx, f.ID, f.Participations); err != nil {
			return err
		}

		f.IsActive = true
		f.CreatedAt = time.Now().UTC()
		return nil
	})
}

func insertParticipations(ctx context.Context, tx *sql.Tx, fightID int, parts []Participation) error {
	if len(parts) == 0 {
		return nil
	}
	rows := make([]string, 0, len(parts))
	args := make([]any, 0, len(parts)*4)
	for _, p := range parts {
		rows = append(rows, "(?, ?, ?, ?)")
		var team any
		if p.TeamID != nil {
			team = *p.TeamID
		}
		args = append(args, fightID, p.FighterID, team, p.Side)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO participations (fight_id, fighter_id, team_id, side) VALUES `+strings.Join(rows, ", "),
		args...)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewValidation("a fighter may appear only once per fight")
		}
		if database.IsMissingReference(err) {
			return apperror.NewValidation("fighter or team not found")
		}
		return fmt.Errorf("inserting participations: %w", err)
	}
	return nil
}

func scanFight(row interface{ Scan(...any) error }) (*Fight, error) {
	var (
		f    Fight
		date time.Time
		sc   string
	)
	if err := row.Scan(&f.ID, &date, &f.Location, &f.IsActive, &f.CreatedAt, &sc); err != nil {
		return nil, err
	}
	f.Date = date.Format(DateLayout)
	f.Supercategory = fightrules.Supercategory(sc)
	return &f, nil
}

func (r *fightRepository) FindByID(ctx context.Context, id int) (*Fight, error) {
	f, err := scanFight(r.db.QueryRowContext(ctx, fightSelect+` WHERE f.id = ?`, tagtypes.IDSupercategory, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("fight not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying fight: %w", err)
	}

	byFight, err := r.participations(ctx, []int{f.ID})
	if err != nil {
		return nil, err
	}
	f.Participations = byFight[f.ID]
	return f, nil
}

func (r *fightRepository) List(ctx context.Context, includeInactive bool) ([]Fight, error) {
	query := fightSelect
	if !includeInactive {
		query += ` WHERE f.is_active = TRUE`
	}
	query += ` ORDER BY f.fight_date DESC, f.id DESC`

	rows, err := r.db.QueryContext(ctx, query, tagtypes.IDSupercategory)
	if err != nil {
		return nil, fmt.Errorf("listing fights: %w", err)
	}
	defer rows.Close()

	var (
		out []Fight
		ids []int
	)
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fight row: %w", err)
		}
		out = append(out, *f)
		ids = append(ids, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fight rows: %w", err)
	}

	byFight, err := r.participations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Participations = byFight[out[i].ID]
	}
	return out, nil
}

// participations loads the participants of several fights in one query.
func (r *fightRepository) participations(ctx context.Context, fightIDs []int) (map[int][]Participation, error) {
	out := make(map[int][]Participation, len(fightIDs))
	if len(fightIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(fightIDs))
	for i, id := range fightIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fightIDs)), ",")

	rows, err := r.db.QueryContext(ctx,
		`SELECT fight_id, fighter_id, team_id, side FROM participations
		 WHERE fight_id IN (`+placeholders+`) ORDER BY fight_id, side, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying participations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fightID int
			p       Participation
			team    sql.NullInt64
		)
		if err := rows.Scan(&fightID, &p.FighterID, &team, &p.Side); err != nil {
			return nil, fmt.Errorf("scanning participation: %w", err)
		}
		if team.Valid {
			id := int(team.Int64)
			p.TeamID = &id
		}
		out[fightID] = append(out[fightID], p)
	}
	return out, rows.Err()
}

func (r *fightRepository) Deactivate(ctx context.Context, id int) (*Deactivation, error) {
	out := &Deactivation{}
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Request rows before the fight row, the order vote casting uses.
		if err := votes.LockPendingForFight(ctx, tx, id); err != nil {
			return err
		}
		if err := tags.LockFight(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE fights SET is_active = FALSE WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deactivating fight: %w", err)
		}

		var err error
		if out.TagsDeactivated, err = tags.NewTreeStore(tx).DeactivateFight(ctx, id); err != nil {
			return err
		}
		out.RequestsRejected, err = votes.RejectPendingForFight(ctx, tx, id, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
