package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/flatmate/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var bestFlatmate int
	var createdAt, updatedAt string
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.HouseholdCode, &u.Karma, &bestFlatmate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.BestFlatmate = bestFlatmate != 0
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, household_code, karma, best_flatmate, created_at, updated_at`

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// preparePassword hashes a plaintext password before it is persisted.
func preparePassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Create registers a user. The password is hashed before insert and the
// email and flat code are normalised.
func (s *UserStore) Create(ctx context.Context, name, email, password, householdCode string) (*model.User, error) {
	email = NormalizeEmail(email)
	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := preparePassword(password)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, household_code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(name), email, hash, strings.ToUpper(strings.TrimSpace(householdCode)), now, now,
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, NormalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// VerifyPassword reports whether password matches the user's stored hash.
func (s *UserStore) VerifyPassword(u *model.User, password string) bool {
	if u == nil {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// IncrementReputation adds amount to the user's karma in a single statement.
func (s *UserStore) IncrementReputation(ctx context.Context, userID string, amount int) error {
	if amount < 0 {
		return errors.New("reputation can only increase")
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET karma = karma + ?, updated_at = ? WHERE id = ?`,
		amount, formatTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("increment reputation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// Leaderboard ranks a household's members by karma, ties broken by name.
func (s *UserStore) Leaderboard(ctx context.Context, householdCode string) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, karma FROM users WHERE household_code = ? ORDER BY karma DESC, name ASC`,
		strings.ToUpper(strings.TrimSpace(householdCode)),
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Karma); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
