package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var errDuplicateUsername = errors.New("username already taken")

// store is the persistence surface the handlers talk to. Task lookups are
// owner-scoped at this level so a foreign task and a missing task are the
// same (nil, nil) result.
type store interface {
	getUserByID(id int) (*user, error)
	getUserByUsername(username string) (*user, error)
	insertUser(u *user) error
	insertTask(t *task) error
	getTasksForUser(userID int) ([]task, error)
	getTaskForUser(id, userID int) (*task, error)
	updateTask(t *task) error
	deleteTaskForUser(id, userID int) (bool, error)
}

func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConnections)
	db.SetMaxIdleConns(cfg.db.maxIdleConnections)
	db.SetConnMaxIdleTime(cfg.db.maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func setupSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id bigserial PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now(),
			username text UNIQUE NOT NULL,
			email text NOT NULL DEFAULT '',
			password_hash bytea NOT NULL
		)`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id bigserial PRIMARY KEY,
			created_at timestamptz NOT NULL DEFAULT now(),
			user_id bigint NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title text NOT NULL,
			description text NOT NULL DEFAULT '',
			completed boolean NOT NULL DEFAULT false,
			due_date timestamptz
		)`)
	return err
}

type storage struct {
	db *sql.DB
}

func newStorage(db *sql.DB) *storage {
	return &storage{db: db}
}

func (s *storage) getUserByUsername(username string) (*user, error) {
	query := `SELECT id, created_at, username, email, password_hash
			  FROM users
			  WHERE username = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, username)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) getUserByID(id int) (*user, error) {
	query := `SELECT id, created_at, username, email, password_hash
			  FROM users
			  WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id)
	var u user
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *storage) insertUser(u *user) error {
	query := `INSERT INTO users (username, email, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash)
	err := row.Scan(&u.ID, &u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return errDuplicateUsername
	}
	return err
}

func (s *storage) insertTask(t *task) error {
	query := `INSERT INTO tasks (user_id, title, description, completed, due_date)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, query, t.UserID, t.Title, t.Description, t.Completed, t.DueDate)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (s *storage) getTasksForUser(userID int) ([]task, error) {
	query := `SELECT id, created_at, user_id, title, description, completed, due_date
			  FROM tasks
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task{}
	for rows.Next() {
		var t task
		err := rows.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.DueDate)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *storage) getTaskForUser(id, userID int) (*task, error) {
	query := `SELECT id, created_at, user_id, title, description, completed, due_date
			  FROM tasks
			  WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := s.db.QueryRowContext(ctx, query, id, userID)
	var t task
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.DueDate)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *storage) updateTask(t *task) error {
	query := `UPDATE tasks SET title = $1, description = $2, completed = $3, due_date = $4
			  WHERE id = $5 AND user_id = $6`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query, t.Title, t.Description, t.Completed, t.DueDate, t.ID, t.UserID)
	return err
}

func (s *storage) deleteTaskForUser(id, userID int) (bool, error) {
	query := `DELETE FROM tasks
			  WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
