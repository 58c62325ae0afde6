package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/database"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
)

// RequestStore works on one change request inside a transaction that holds
// the request's row lock.
type RequestStore interface {
	// Request returns the locked request as read at lock time.
	Request() *TagChangeRequest

	// InsertVote records a ballot. A second ballot from the same session is
	// reported as a conflict.
	InsertVote(ctx context.Context, v *Vote) error

	// Tally counts the request's ballots.
	Tally(ctx context.Context) (votesFor, votesAgainst int, err error)

	// SaveTally stores the counted ballots on the request row.
	SaveTally(ctx context.Context, votesFor, votesAgainst int) error

	// Resolve moves the request to a terminal status.
	Resolve(ctx context.Context, status Status, at time.Time) error

	// Tree locks the request's fight and returns its tag tree, bound to
	// the same transaction.
	Tree(ctx context.Context) (tags.TreeStore, error)
}

// ChangeRequestRepository defines the data access contract for change
// requests and their votes.
type ChangeRequestRepository interface {
	// Create inserts a pending request. A second pending request for the
	// same fight and tag type is reported as a conflict.
	Create(ctx context.Context, req *TagChangeRequest) error

	FindByID(ctx context.Context, id int) (*TagChangeRequest, error)

	// ListByFight returns the fight's requests, newest first. An empty
	// status matches all.
	ListByFight(ctx context.Context, fightID int, status Status) ([]TagChangeRequest, error)

	// HasPending reports whether a pending request exists for the pair.
	HasPending(ctx context.Context, fightID, tagTypeID int) (bool, error)

	// WithinRequest locks the request row and runs fn in that transaction.
	// Returns not-found when the request does not exist.
	WithinRequest(ctx context.Context, id int, fn func(RequestStore) error) error
}

type changeRequestRepository struct {
	db *sql.DB
}

// NewChangeRequestRepository creates a new ChangeRequestRepository.
func NewChangeRequestRepository(db *sql.DB) ChangeRequestRepository {
	return &changeRequestRepository{db: db}
}

const requestSelect = `SELECT r.id, r.fight_id, r.tag_type_id, tt.name, r.proposed_value,
	       r.current_value, r.status, r.threshold, r.votes_for, r.votes_against,
	       r.created_at, r.resolved_at
	FROM tag_change_requests r
	JOIN tag_types tt ON tt.id = r.tag_type_id`

func scanRequest(row interface{ Scan(...any) error }) (*TagChangeRequest, error) {
	var (
		r        TagChangeRequest
		current  sql.NullString
		resolved sql.NullTime
	)
	err := row.Scan(&r.ID, &r.FightID, &r.TagTypeID, &r.TagTypeName, &r.ProposedValue,
		&current, &r.Status, &r.Threshold, &r.VotesFor, &r.VotesAgainst,
		&r.CreatedAt, &resolved)
	if err != nil {
		return nil, err
	}
	if current.Valid {
		r.CurrentValue = &current.String
	}
	if resolved.Valid {
		r.ResolvedAt = &resolved.Time
	}
	return &r, nil
}

// Create inserts a pending request and sets its ID.
func (r *changeRequestRepository) Create(ctx context.Context, req *TagChangeRequest) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tag_change_requests (fight_id, tag_type_id, proposed_value, current_value, threshold)
		 VALUES (?, ?, ?, ?, ?)`,
		req.FightID, req.TagTypeID, req.ProposedValue, req.CurrentValue, req.Threshold,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("a change request for this tag is already pending")
		}
		if database.IsMissingReference(err) {
			return apperror.NewNotFound("fight or tag type not found")
		}
		return fmt.Errorf("inserting change request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	req.ID = int(id)
	req.Status = StatusPending
	return nil
}

// FindByID retrieves a change request.
func (r *changeRequestRepository) FindByID(ctx context.Context, id int) (*TagChangeRequest, error) {
	return findRequest(ctx, r.db, id)
}

func findRequest(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id int) (*TagChangeRequest, error) {
	req, err := scanRequest(q.QueryRowContext(ctx, requestSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("change request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying change request: %w", err)
	}
	return req, nil
}

// ListByFight returns the fight's requests, newest first.
func (r *changeRequestRepository) ListByFight(ctx context.Context, fightID int, status Status) ([]TagChangeRequest, error) {
	query := requestSelect + ` WHERE r.fight_id = ?`
	args := []any{fightID}
	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing change requests: %w", err)
	}
	defer rows.Close()

	var out []TagChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning change request row: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change request rows: %w", err)
	}
	return out, nil
}

// HasPending reports whether a pending request exists for the pair.
func (r *changeRequestRepository) HasPending(ctx context.Context, fightID, tagTypeID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tag_change_requests WHERE fight_id = ? AND tag_type_id = ? AND status = 'pending')`,
		fightID, tagTypeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending change request: %w", err)
	}
	return exists, nil
}

// WithinRequest locks the request row, then loads it. The lock query reads
// tag_change_requests alone so tag_types rows are never locked.
func (r *changeRequestRepository) WithinRequest(ctx context.Context, id int, fn func(RequestStore) error) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked int
		err := tx.QueryRowContext(ctx, `SELECT id FROM tag_change_requests WHERE id = ? FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NewNotFound("change request not found")
		}
		if err != nil {
			return fmt.Errorf("locking change request: %w", err)
		}

		req, err := findRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		return fn(&requestStore{tx: tx, req: req})
	})
}

// --- transaction-bound request store ---

type requestStore struct {
	tx  *sql.Tx
	req *TagChangeRequest
}

func (s *requestStore) Request() *TagChangeRequest {
	return s.req
}

func (s *requestStore) InsertVote(ctx context.Context, v *Vote) error {
	result, err := s.tx.ExecContext(ctx,
		`INSERT INTO votes (request_id, session_hash, is_upvote) VALUES (?, ?, ?)`,
		v.RequestID, v.SessionHash, v.IsUpvote,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apperror.NewConflict("this session has already voted on the change request")
		}
		return fmt.Errorf("inserting vote: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	v.ID = int(id)
	v.CreatedAt = time.Now().UTC()
	return nil
}

func (s *requestStore) Tally(ctx context.Context) (int, int, error) {
	var votesFor, votesAgainst int
	err := s.tx.QueryRowContext(ctx,
		`SELECT COUNT(CASE WHEN is_upvote THEN 1 END), COUNT(CASE WHEN NOT is_upvote THEN 1 END)
		 FROM votes WHERE request_id = ?`,
		s.req.ID,
	).Scan(&votesFor, &votesAgainst)
	if err != nil {
		return 0, 0, fmt.Errorf("counting votes: %w", err)
	}
	return votesFor, votesAgainst, nil
}

func (s *requestStore) SaveTally(ctx context.Context, votesFor, votesAgainst int) error {
	if _, err := s.tx.ExecContext(ctx,
		`UPDATE tag_change_requests SET votes_for = ?, votes_against = ? WHERE id = ?`,
		votesFor, votesAgainst, s.req.ID,
	); err != nil {
		return fmt.Errorf("saving vote tally: %w", err)
	}
	return nil
}

func (s *requestStore) Resolve(ctx context.Context, status Status, at time.Time) error {
	if _, err := s.tx.ExecContext(ctx,
		`UPDATE tag_change_requests SET status = ?, resolved_at = ? WHERE id = ?`,
		string(status), at, s.req.ID,
	); err != nil {
		return fmt.Errorf("resolving change request: %w", err)
	}
	return nil
}

// LockPendingForFight takes the row locks of the fight's pending change
// requests. A caller that also locks the fight must call this first, so
// the request-then-fight order used by vote casting holds.
func LockPendingForFight(ctx context.Context, tx *sql.Tx, fightID int) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM tag_change_requests WHERE fight_id = ? AND status = 'pending' FOR UPDATE`, fightID)
	if err != nil {
		return fmt.Errorf("locking pending change requests: %w", err)
	}
	defer rows.Close()
	for rows.Next() { // drain; the locks are the point
	}
	return rows.Err()
}

// RejectPendingForFight closes every pending change request of the fight as
// rejected. Used when the fight is deactivated and no request can apply.
func RejectPendingForFight(ctx context.Context, tx *sql.Tx, fightID int, at time.Time) (int, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE tag_change_requests SET status = 'rejected', resolved_at = ? WHERE fight_id = ? AND status = 'pending'`,
		at, fightID)
	if err != nil {
		return 0, fmt.Errorf("rejecting pending change requests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func (s *requestStore) Tree(ctx context.Context) (tags.TreeStore, error) {
	if err := tags.LockFight(ctx, s.tx, s.req.FightID); err != nil {
		return nil, err
	}
	return tags.NewTreeStore(s.tx), nil
}
