package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/flatmate/internal/model"
)

type ComplaintStore struct {
	db *sql.DB
}

func NewComplaintStore(db *sql.DB) *ComplaintStore {
	return &ComplaintStore{db: db}
}

const complaintCols = `c.id, c.title, c.description, c.category, c.severity, c.filed_by, COALESCE(u.name, ''),
	c.household_code, c.upvotes, c.downvotes, c.resolved, c.resolved_by, c.resolved_at, c.downvoted_at,
	c.suggested_punishment, c.version, c.created_at, c.updated_at`

const complaintFrom = ` FROM complaints c LEFT JOIN users u ON u.id = c.filed_by`

func scanComplaint(scanner interface{ Scan(...any) error }) (*model.Complaint, error) {
	var c model.Complaint
	var resolved int
	var resolvedBy, resolvedAt, downvotedAt, punishment sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Category, &c.Severity, &c.FiledBy, &c.FiledByName,
		&c.HouseholdCode, &c.Upvotes, &c.Downvotes, &resolved, &resolvedBy, &resolvedAt, &downvotedAt,
		&punishment, &c.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Resolved = resolved != 0
	if resolvedBy.Valid {
		c.ResolvedBy = &resolvedBy.String
	}
	if punishment.Valid {
		c.SuggestedPunishment = &punishment.String
	}
	if c.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return nil, err
	}
	if c.DownvotedAt, err = parseNullTime(downvotedAt); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	c.UpvotedBy = model.NewVoteSet()
	c.DownvotedBy = model.NewVoteSet()
	return &c, nil
}

func (s *ComplaintStore) Create(ctx context.Context, c *model.Complaint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO complaints (id, title, description, category, severity, filed_by, household_code,
			upvotes, downvotes, resolved, resolved_by, resolved_at, downvoted_at, suggested_punishment,
			version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Description, string(c.Category), string(c.Severity), c.FiledBy, c.HouseholdCode,
		c.Upvotes, c.Downvotes, boolInt(c.Resolved), nullString(c.ResolvedBy), nullTime(c.ResolvedAt),
		nullTime(c.DownvotedAt), nullString(c.SuggestedPunishment), c.Version,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}

	if err := syncVotes(ctx, tx, c, nil, c.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *ComplaintStore) GetByID(ctx context.Context, id string) (*model.Complaint, error) {
	return getComplaint(ctx, s.db, id)
}

func getComplaint(ctx context.Context, q queryer, id string) (*model.Complaint, error) {
	row := q.QueryRowContext(ctx, `SELECT `+complaintCols+complaintFrom+` WHERE c.id = ?`, id)
	c, err := scanComplaint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}

	votes, err := loadVotes(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	applyVotes(c, votes[id])
	return c, nil
}

// Update loads the complaint, applies fn and writes the result back in one
// transaction. The write only succeeds if the row's version is unchanged
// since it was read and no other connection holds the write lock; otherwise
// ErrConflict is returned and nothing is persisted. It returns (nil, nil) if the complaint does not exist.
func (s *ComplaintStore) Update(ctx context.Context, id string, fn func(*model.Complaint) error) (*model.Complaint, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c, err := getComplaint(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	before := voteDirections(c)
	if err := fn(c); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE complaints SET description = ?, upvotes = ?, downvotes = ?, resolved = ?, resolved_by = ?,
			resolved_at = ?, downvoted_at = ?, suggested_punishment = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		c.Description, c.Upvotes, c.Downvotes, boolInt(c.Resolved), nullString(c.ResolvedBy),
		nullTime(c.ResolvedAt), nullTime(c.DownvotedAt), nullString(c.SuggestedPunishment), formatTime(now),
		id, c.Version,
	)
	if err != nil {
		return nil, writeErr("update complaint", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("complaint %s: %w", id, ErrConflict)
	}

	if err := syncVotes(ctx, tx, c, before, now); err != nil {
		return nil, writeErr("sync votes", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, writeErr("commit", err)
	}

	c.Version++
	c.UpdatedAt = now
	return c, nil
}

// ListOpenByHousehold returns unresolved complaints for a flat, newest first.
func (s *ComplaintStore) ListOpenByHousehold(ctx context.Context, householdCode string) ([]model.Complaint, error) {
	return s.list(ctx, "list open complaints",
		` WHERE c.household_code = ? AND c.resolved = 0 ORDER BY c.created_at DESC`,
		householdCode,
	)
}

// ListAll returns every complaint, newest first.
func (s *ComplaintStore) ListAll(ctx context.Context) ([]model.Complaint, error) {
	return s.list(ctx, "list complaints", ` ORDER BY c.created_at DESC`)
}

// ListResolved returns resolved complaints, most recently resolved first.
func (s *ComplaintStore) ListResolved(ctx context.Context) ([]model.Complaint, error) {
	return s.list(ctx, "list resolved complaints",
		` WHERE c.resolved = 1 ORDER BY c.resolved_at DESC, c.created_at DESC`,
	)
}

// ListTrending returns open complaints with at least one upvote, ordered by
// upvotes then recency, skipping any first downvoted at or before
// staleBefore. An empty householdCode matches every flat.
func (s *ComplaintStore) ListTrending(ctx context.Context, householdCode string, staleBefore time.Time, limit int) ([]model.Complaint, error) {
	return s.list(ctx, "list trending complaints",
		` WHERE c.resolved = 0 AND c.upvotes > 0
			AND (? = '' OR c.household_code = ?)
			AND NOT (c.downvotes > 0 AND c.downvoted_at IS NOT NULL AND c.downvoted_at <= ?)
		 ORDER BY c.upvotes DESC, c.created_at DESC
		 LIMIT ?`,
		householdCode, householdCode, formatTime(staleBefore), limit,
	)
}

// ListStaleIDs returns the ids of open, downvoted complaints whose first
// downvote is at or before staleBefore, oldest first.
func (s *ComplaintStore) ListStaleIDs(ctx context.Context, staleBefore time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM complaints
		 WHERE resolved = 0 AND downvotes > 0 AND downvoted_at IS NOT NULL AND downvoted_at <= ?
		 ORDER BY downvoted_at ASC`,
		formatTime(staleBefore),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale complaints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan complaint id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats computes the household dashboard aggregates.
func (s *ComplaintStore) Stats(ctx context.Context, householdCode string, staleBefore time.Time) (*model.HouseholdStats, error) {
	var stats model.HouseholdStats

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM complaints WHERE household_code = ?`, householdCode,
	).Scan(&stats.TotalComplaints); err != nil {
		return nil, fmt.Errorf("count complaints: %w", err)
	}

	categories, err := s.topCategories(ctx, householdCode)
	if err != nil {
		return nil, err
	}
	stats.TopCategories = append([]model.CategoryCount{}, categories...)

	downvoted, err := s.mostDownvoted(ctx, householdCode)
	if err != nil {
		return nil, err
	}
	stats.MostComplainedAt = append([]model.DownvotedUser{}, downvoted...)

	trending, err := s.ListTrending(ctx, householdCode, staleBefore, 1)
	if err != nil {
		return nil, err
	}
	if len(trending) > 0 {
		stats.ProblemOfTheWeek = &trending[0]
	}
	return &stats, nil
}

func (s *ComplaintStore) topCategories(ctx context.Context, householdCode string) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) AS n FROM complaints
		 WHERE household_code = ? AND resolved = 0
		 GROUP BY category
		 ORDER BY n DESC, category ASC
		 LIMIT 3`,
		householdCode,
	)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	categories := []model.CategoryCount{}
	for rows.Next() {
		var cc model.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		categories = append(categories, cc)
	}
	return categories, rows.Err()
}

func (s *ComplaintStore) mostDownvoted(ctx context.Context, householdCode string) ([]model.DownvotedUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.filed_by, u.name, SUM(c.downvotes) AS total
		 FROM complaints c
		 JOIN users u ON u.id = c.filed_by
		 WHERE c.household_code = ? AND c.resolved = 0 AND c.downvotes > 0
		 GROUP BY c.filed_by, u.name
		 ORDER BY total DESC, u.name ASC
		 LIMIT 5`,
		householdCode,
	)
	if err != nil {
		return nil, fmt.Errorf("most downvoted users: %w", err)
	}
	defer rows.Close()

	users := []model.DownvotedUser{}
	for rows.Next() {
		var du model.DownvotedUser
		if err := rows.Scan(&du.UserID, &du.Name, &du.TotalDownvotes); err != nil {
			return nil, fmt.Errorf("scan downvoted user: %w", err)
		}
		users = append(users, du)
	}
	return users, rows.Err()
}

func (s *ComplaintStore) list(ctx context.Context, op, where string, args ...any) ([]model.Complaint, error) {
	complaints, err := queryComplaints(ctx, s.db, `SELECT `+complaintCols+complaintFrom+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(complaints) == 0 {
		return complaints, nil
	}

	ids := make([]string, len(complaints))
	for i := range complaints {
		ids[i] = complaints[i].ID
	}
	votes, err := loadVotes(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range complaints {
		applyVotes(&complaints[i], votes[complaints[i].ID])
	}
	return complaints, nil
}

// queryComplaints drains the result set before returning so the connection
// is free for the vote lookup that follows.
func queryComplaints(ctx context.Context, q queryer, query string, args ...any) ([]model.Complaint, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	complaints := []model.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		complaints = append(complaints, *c)
	}
	return complaints, rows.Err()
}

// --- Vote rows ---

// loadVotes returns complaint id -> voter id -> direction.
func loadVotes(ctx context.Context, q queryer, complaintIDs []string) (map[string]map[string]model.VoteType, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(complaintIDs)), ",")
	args := make([]any, len(complaintIDs))
	for i, id := range complaintIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT complaint_id, user_id, direction FROM complaint_votes WHERE complaint_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[string]map[string]model.VoteType)
	for rows.Next() {
		var complaintID, userID string
		var direction model.VoteType
		if err := rows.Scan(&complaintID, &userID, &direction); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		if votes[complaintID] == nil {
			votes[complaintID] = make(map[string]model.VoteType)
		}
		votes[complaintID][userID] = direction
	}
	return votes, rows.Err()
}

func applyVotes(c *model.Complaint, votes map[string]model.VoteType) {
	for userID, direction := range votes {
		switch direction {
		case model.VoteUp:
			c.UpvotedBy.Add(userID)
		case model.VoteDown:
			c.DownvotedBy.Add(userID)
		}
	}
}

func voteDirections(c *model.Complaint) map[string]model.VoteType {
	votes := make(map[string]model.VoteType, c.UpvotedBy.Len()+c.DownvotedBy.Len())
	for id := range c.UpvotedBy {
		votes[id] = model.VoteUp
	}
	for id := range c.DownvotedBy {
		votes[id] = model.VoteDown
	}
	return votes
}

// syncVotes writes the difference between the vote rows read earlier and
// the complaint's current vote sets.
func syncVotes(ctx context.Context, tx *sql.Tx, c *model.Complaint, before map[string]model.VoteType, now time.Time) error {
	after := voteDirections(c)

	for userID, direction := range before {
		if after[userID] == direction {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM complaint_votes WHERE complaint_id = ? AND user_id = ?`,
			c.ID, userID,
		); err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}
	}

	for userID, direction := range after {
		if before[userID] == direction {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO complaint_votes (complaint_id, user_id, direction, created_at) VALUES (?, ?, ?, ?)`,
			c.ID, userID, string(direction), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
	}
	return nil
}
