package tagtypes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/database"
)

// TagTypeRepository defines the data access contract for tag types.
type TagTypeRepository interface {
	// Create inserts a new tag type and sets its ID on the struct.
	Create(ctx context.Context, tt *TagType) error

	// FindByID retrieves a tag type by primary key, active or not.
	FindByID(ctx context.Context, id int) (*TagType, error)

	// FindByName retrieves a tag type by its unique name, active or not.
	FindByName(ctx context.Context, name string) (*TagType, error)

	// List returns tag types ordered by display_order, then id.
	List(ctx context.Context, includeInactive bool) ([]TagType, error)

	// Update persists name, flags and display order.
	Update(ctx context.Context, tt *TagType) error

	// Deactivate soft-deletes a tag type.
	Deactivate(ctx context.Context, id int) error
}

// tagTypeRepository implements TagTypeRepository with hand-written SQL.
type tagTypeRepository struct {
	db *sql.DB
}

// NewTagTypeRepository creates a new TagTypeRepository.
func NewTagTypeRepository(db *sql.DB) TagTypeRepository {
	return &tagTypeRepository{db: db}
}

const tagTypeColumns = `id, name, is_privileged, is_parent, display_order, is_active, created_at`

func scanTagType(row interface{ Scan(...any) error }) (*TagType, error) {
	var t TagType
	err := row.Scan(&t.ID, &t.Name, &t.IsPrivileged, &t.IsParent, &t.DisplayOrder, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tag type.
func (r *tagTypeRepository) Create(ctx context.Context, tt *TagType) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tag_types (name, is_privileged, is_parent, display_order) VALUES (?, ?, ?, ?)`,
		tt.Name, tt.IsPrivileged, tt.IsParent, tt.DisplayOrder,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a tag type with this name already exists")
		}
		return fmt.Errorf("inserting tag type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	tt.ID = int(id)
	tt.IsActive = true
	return nil
}

// FindByID retrieves a tag type by primary key.
func (r *tagTypeRepository) FindByID(ctx context.Context, id int) (*TagType, error) {
	t, err := scanTagType(r.db.QueryRowContext(ctx,
		`SELECT `+tagTypeColumns+` FROM tag_types WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("tag type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag type by id: %w", err)
	}
	return t, nil
}

// FindByName retrieves a tag type by name.
func (r *tagTypeRepository) FindByName(ctx context.Context, name string) (*TagType, error) {
	t, err := scanTagType(r.db.QueryRowContext(ctx,
		`SELECT `+tagTypeColumns+` FROM tag_types WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("tag type not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying tag type by name: %w", err)
	}
	return t, nil
}

// List returns tag types in display order.
func (r *tagTypeRepository) List(ctx context.Context, includeInactive bool) ([]TagType, error) {
	query := `SELECT ` + tagTypeColumns + ` FROM tag_types`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY display_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tag types: %w", err)
	}
	defer rows.Close()

	var types []TagType
	for rows.Next() {
		t, err := scanTagType(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag type row: %w", err)
		}
		types = append(types, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag type rows: %w", err)
	}
	return types, nil
}

// Update persists a tag type's mutable fields.
func (r *tagTypeRepository) Update(ctx context.Context, tt *TagType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tag_types SET name = ?, is_privileged = ?, is_parent = ?, display_order = ? WHERE id = ?`,
		tt.Name, tt.IsPrivileged, tt.IsParent, tt.DisplayOrder, tt.ID,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a tag type with this name already exists")
		}
		return fmt.Errorf("updating tag type: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	} else if n == 0 {
		// MariaDB reports 0 affected rows when nothing changed, so confirm
		// the row exists before calling it missing.
		if _, err := r.FindByID(ctx, tt.ID); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate soft-deletes a tag type. Existing tags keep referencing it.
func (r *tagTypeRepository) Deactivate(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tag_types SET is_active = FALSE WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deactivating tag type: %w", err)
	}
	return nil
}
