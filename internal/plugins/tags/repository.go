package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/database"
)

// TreeStore reads and mutates one fight's tag tree. Stores handed out by
// TagRepository.WithinFight (or built with NewTreeStore) are bound to a
// transaction; nothing they write is visible until it commits.
type TreeStore interface {
	// FindByID returns a tag by primary key regardless of fight or state.
	FindByID(ctx context.Context, id int) (*Tag, error)

	// FindActiveByType returns the fight's active tag of the given type,
	// or nil when there is none. For multi-valued types the oldest wins.
	FindActiveByType(ctx context.Context, fightID, tagTypeID int) (*Tag, error)

	// ActiveChildren returns the active tags whose parent is parentID.
	ActiveChildren(ctx context.Context, parentID int) ([]Tag, error)

	// Insert creates a tag and sets its ID. A second active tag of a
	// singular type is reported as a conflict.
	Insert(ctx context.Context, tag *Tag) error

	// SetValue overwrites a tag's value.
	SetValue(ctx context.Context, id int, value string) error

	// DeactivateSubtree deactivates rootID and every descendant, returning
	// how many rows actually changed. Inactive rows are left alone.
	DeactivateSubtree(ctx context.Context, rootID int) (int, error)

	// DeactivateFight deactivates every tag on the fight.
	DeactivateFight(ctx context.Context, fightID int) (int, error)

	// Delete permanently removes a tag. Children keep existing with a
	// NULL parent.
	Delete(ctx context.Context, id int) error
}

// TagRepository defines the data access contract for tags.
type TagRepository interface {
	// WithinFight runs fn in a transaction holding the fight's row lock.
	// Returns not-found when the fight does not exist.
	WithinFight(ctx context.Context, fightID int, fn func(TreeStore) error) error

	// FightExists reports whether a fight row exists.
	FightExists(ctx context.Context, fightID int) (bool, error)

	// FindByID retrieves a single tag.
	FindByID(ctx context.Context, id int) (*Tag, error)

	// List returns tags matching the filter, grouped by fight in display order.
	List(ctx context.Context, filter ListFilter) ([]Tag, error)
}

// queryer is the subset of *sql.DB and *sql.Tx the tree queries need.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tagRepository implements TagRepository using MariaDB with hand-written SQL.
type tagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new TagRepository backed by the given database connection.
func NewTagRepository(db *sql.DB) TagRepository {
	return &tagRepository{db: db}
}

// LockFight takes the fight's row lock for the rest of tx. Every write to a
// fight's tag tree, including vote resolution and fight deactivation, holds
// this lock first.
func LockFight(ctx context.Context, tx *sql.Tx, fightID int) error {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM fights WHERE id = ? FOR UPDATE`, fightID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("fight not found")
	}
	if err != nil {
		return fmt.Errorf("locking fight %d: %w", fightID, err)
	}
	return nil
}

// NewTreeStore binds a TreeStore to an open transaction. Callers that
// mutate the tree must hold LockFight on the same transaction.
func NewTreeStore(tx *sql.Tx) TreeStore {
	return &treeStore{q: tx}
}

// WithinFight locks the fight and hands fn a transaction-bound store.
func (r *tagRepository) WithinFight(ctx context.Context, fightID int, fn func(TreeStore) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := LockFight(ctx, tx, fightID); err != nil {
			return err
		}
		return fn(NewTreeStore(tx))
	})
}

// FightExists reports whether the fight row exists, active or not.
func (r *tagRepository) FightExists(ctx context.Context, fightID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM fights WHERE id = ?)`, fightID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking fight existence: %w", err)
	}
	return exists, nil
}

// FindByID retrieves a tag outside any transaction.
func (r *tagRepository) FindByID(ctx context.Context, id int) (*Tag, error) {
	return (&treeStore{q: r.db}).FindByID(ctx, id)
}

// List returns tags matching the filter.
func (r *tagRepository) List(ctx context.Context, filter ListFilter) ([]Tag, error) {
	var (
		where []string
		args  []any
	)
	if filter.FightID > 0 {
		where = append(where, "t.fight_id = ?")
		args = append(args, filter.FightID)
	}
	if filter.TagTypeName != "" {
		where = append(where, "tt.name = ?")
		args = append(args, filter.TagTypeName)
	}
	if !filter.IncludeInactive {
		where = append(where, "t.is_active = TRUE")
	}

	query := tagSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.fight_id ASC, tt.display_order ASC, t.id ASC`

	return queryTags(ctx, r.db, query, args...)
}

// --- transaction-bound tree store ---

type treeStore struct {
	q queryer
}

const tagSelect = `SELECT t.id, t.fight_id, t.tag_type_id, tt.name, tt.is_parent,
	       t.parent_tag_id, t.value, t.is_active, t.created_at
	FROM tags t
	JOIN tag_types tt ON tt.id = t.tag_type_id`

func scanTag(row interface{ Scan(...any) error }) (*Tag, error) {
	var (
		t      Tag
		parent sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.FightID, &t.TagTypeID, &t.TagTypeName, &t.typeIsParent,
		&parent, &t.Value, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		p := int(parent.Int64)
		t.ParentTagID = &p
	}
	return &t, nil
}

func queryTags(ctx context.Context, q queryer, query string, args ...any) ([]Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rows: %w", err)
	}
	return tags, nil
}

func (s *treeStore) FindByID(ctx context.Context, id int) (*Tag, error) {
	t, err := scanTag(s.q.QueryRowContext(ctx, tagSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag by id: %w", err)
	}
	return t, nil
}

func (s *treeStore) FindActiveByType(ctx context.Context, fightID, tagTypeID int) (*Tag, error) {
	t, err := scanTag(s.q.QueryRowContext(ctx,
		tagSelect+` WHERE t.fight_id = ? AND t.tag_type_id = ? AND t.is_active = TRUE ORDER BY t.id ASC LIMIT 1`,
		fightID, tagTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active tag by type: %w", err)
	}
	return t, nil
}

func (s *treeStore) ActiveChildren(ctx context.Context, parentID int) ([]Tag, error) {
	return queryTags(ctx, s.q,
		tagSelect+` WHERE t.parent_tag_id = ? AND t.is_active = TRUE ORDER BY t.id ASC`, parentID)
}

func (s *treeStore) Insert(ctx context.Context, tag *Tag) error {
	var parent any
	if tag.ParentTagID != nil {
		parent = *tag.ParentTagID
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO tags (fight_id, tag_type_id, parent_tag_id, value) VALUES (?, ?, ?, ?)`,
		tag.FightID, tag.TagTypeID, parent, tag.Value,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("an active tag of this type already exists on the fight")
		}
		if database.IsMissingReference(err) {
			return apperror.NewNotFound("fight, tag type or parent tag not found")
		}
		return fmt.Errorf("inserting tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	tag.ID = int(id)
	tag.IsActive = true
	tag.CreatedAt = time.Now().UTC()
	return nil
}

func (s *treeStore) SetValue(ctx context.Context, id int, value string) error {
	if _, err := s.q.ExecContext(ctx, `UPDATE tags SET value = ? WHERE id = ?`, value, id); err != nil {
		return fmt.Errorf("updating tag value: %w", err)
	}
	return nil
}

// DeactivateSubtree walks the tree breadth-first with an explicit queue.
// Inactive nodes are still traversed so no active descendant is missed, and
// the visited set keeps a corrupted (cyclic) tree from looping.
func (s *treeStore) DeactivateSubtree(ctx context.Context, rootID int) (int, error) {
	queue := []int{rootID}
	visited := make(map[int]bool)
	changed := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		res, err := s.q.ExecContext(ctx, `UPDATE tags SET is_active = FALSE WHERE id = ? AND is_active = TRUE`, id)
		if err != nil {
			return changed, fmt.Errorf("deactivating tag %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return changed, fmt.Errorf("checking rows affected: %w", err)
		}
		changed += int(n)

		children, err := s.childIDs(ctx, id)
		if err != nil {
			return changed, err
		}
		queue = append(queue, children...)
	}
	return changed, nil
}

func (s *treeStore) childIDs(ctx context.Context, parentID int) ([]int, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM tags WHERE parent_tag_id = ?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying child tags: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning child tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *treeStore) DeactivateFight(ctx context.Context, fightID int) (int, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE tags SET is_active = FALSE WHERE fight_id = ? AND is_active = TRUE`, fightID)
	if err != nil {
		return 0, fmt.Errorf("deactivating fight tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func (s *treeStore) Delete(ctx context.Context, id int) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}
	return nil
}
