package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"concedii/internal/platform/querier"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	SubstituteID *int64
	Roles        []string
	CreatedAt    time.Time
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT id, username, email, full_name, password_hash, is_active, substitute_id, created_at
    FROM users
    WHERE username = $1
  `, username).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.SubstituteID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}

	roles, err := s.RolesOfUser(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (s *Store) RolesOfUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.code
    FROM user_roles ur
    JOIN roles r ON r.id = ur.role_id
    WHERE ur.user_id = $1
    ORDER BY r.code
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		roles = append(roles, code)
	}
	return roles, rows.Err()
}

func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE id = $1", userID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DirectorSubstituteID returns the substitute configured on the director
// account, or nil when none is set. Read fresh on every call: revoking the
// substitution must revoke approval rights immediately.
func (s *Store) DirectorSubstituteID(ctx context.Context, directorUsername string) (*int64, error) {
	var substituteID *int64
	err := s.DB.QueryRow(ctx, `
    SELECT substitute_id
    FROM users
    WHERE username = $1
  `, directorUsername).Scan(&substituteID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return substituteID, nil
}

// SetDirectorSubstitute points the director account's substitute edge at
// the given user, or clears it when substituteID is nil.
func (s *Store) SetDirectorSubstitute(ctx context.Context, directorUsername string, substituteID *int64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET substitute_id = $1, updated_at = now()
    WHERE username = $2
  `, substituteID, directorUsername)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET updated_at = now() WHERE id = $1", userID)
	return err
}
