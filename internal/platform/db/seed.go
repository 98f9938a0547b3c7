package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"concedii/internal/domain/auth"
	"concedii/internal/domain/entitlement"
	"concedii/internal/platform/config"
)

type seedUser struct {
	username string
	email    string
	fullName string
	roles    []string
}

// Seed creates the role catalogue and the baseline accounts. Every step
// is idempotent so the seed can run on each start.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	roleIDs, err := ensureRoles(ctx, pool)
	if err != nil {
		return err
	}

	users := []seedUser{
		{username: cfg.DirectorUsername, email: cfg.DirectorUsername + "@example.local", fullName: "Director",
			roles: []string{auth.RoleDirector, auth.RoleEmployee}},
		{username: "director.adjunct", email: "director.adjunct@example.local", fullName: "Director adjunct",
			roles: []string{auth.RoleDeputyDirector, auth.RoleEmployee}},
		{username: "admin", email: "admin@example.local", fullName: "Administrator",
			roles: []string{auth.RoleAdministrator}},
	}

	year := time.Now().Year()
	userIDs := map[string]int64{}
	for _, u := range users {
		userID, err := ensureUser(ctx, pool, u, cfg.SeedDefaultPass)
		if err != nil {
			return err
		}
		userIDs[u.username] = userID
		for _, role := range u.roles {
			if err := ensureUserRole(ctx, pool, userID, roleIDs[role]); err != nil {
				return err
			}
		}
		if err := ensureEntitlement(ctx, pool, userID, year, entitlement.TypeOrdinary, cfg.DefaultAnnualDays); err != nil {
			return err
		}
	}

	return ensureSubstitute(ctx, pool, userIDs[cfg.DirectorUsername], userIDs["director.adjunct"])
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) (map[string]int64, error) {
	roleIDs := map[string]int64{}
	for code, name := range auth.AllRoles {
		var id int64
		err := pool.QueryRow(ctx, `
      INSERT INTO roles (code, name) VALUES ($1, $2)
      ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, code, name).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[code] = id
	}
	return roleIDs, nil
}

func ensureUser(ctx context.Context, pool *pgxpool.Pool, u seedUser, password string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE username = $1", u.username).Scan(&id)
	if err == nil {
		return id, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO users (username, email, full_name, password_hash)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, u.username, u.email, u.fullName, hash).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureUserRole(ctx context.Context, pool *pgxpool.Pool, userID, roleID int64) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
    ON CONFLICT DO NOTHING
  `, userID, roleID)
	return err
}

func ensureSubstitute(ctx context.Context, pool *pgxpool.Pool, directorID, deputyID int64) error {
	// A substitute chosen through the API is never overwritten.
	_, err := pool.Exec(ctx, `
    UPDATE users SET substitute_id = $2
    WHERE id = $1 AND substitute_id IS NULL
  `, directorID, deputyID)
	return err
}

func ensureEntitlement(ctx context.Context, pool *pgxpool.Pool, userID int64, year int, leaveType string, annualDays int) error {
	// Existing rows are left alone; the seed never resets used_days.
	_, err := pool.Exec(ctx, `
    INSERT INTO leave_entitlements (user_id, year, type, annual_days)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id, year, type) DO NOTHING
  `, userID, year, leaveType, annualDays)
	return err
}
