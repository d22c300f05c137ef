package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventhub/utils"

	"github.com/google/uuid"
)

type sqlUserRepo struct{ db *sql.DB }

func NewSQLUserRepository(db *sql.DB) UserRepository { return &sqlUserRepo{db} }

func (r *sqlUserRepo) Create(ctx context.Context, u *User) error {
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}

	created := User{
		ID:               uuid.NewString(),
		Email:            strings.ToLower(strings.TrimSpace(u.Email)),
		Password:         hashed,
		RegisteredEvents: []string{},
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO users (id, email, password) VALUES ($1, $2, $3)`,
		created.ID, created.Email, created.Password)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	*u = created
	return nil
}

func (r *sqlUserRepo) ValidateCredentials(ctx context.Context, email, plain string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `SELECT id, email, password FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (r *sqlUserRepo) GetByID(ctx context.Context, id string) (User, error) {
	return loadSQLUser(ctx, r.db, id, false)
}

// loadSQLUser reads a user and its registered events. forUpdate locks the
// user row for the rest of the surrounding transaction.
func loadSQLUser(ctx context.Context, q queryer, id string, forUpdate bool) (User, error) {
	query := `SELECT id, email, password FROM users WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var u User
	if err := q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Password); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}

	events, err := queryStrings(ctx, q,
		`SELECT event_id::text FROM registrations WHERE user_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return User{}, fmt.Errorf("get user registrations: %w", err)
	}
	u.RegisteredEvents = events
	return u, nil
}
