package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps the relational database holding users, chats and reports.
type Store struct {
	DB *sql.DB
}

// New constructs the Store using an explicit Postgres DSN.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User is an account row.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	IsActive     bool
}

// ChatMessage is one persisted conversation message.
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is a stored research report.
type Report struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Analysis  string    `json:"analysis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User operations

func (s *Store) CreateUser(ctx context.Context, username, email, hash string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1,$2,$3) RETURNING id`,
		username, email, hash).Scan(&id)
	return id, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, is_active FROM users WHERE username=$1`,
		username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.IsActive)
	return u, err
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, is_active FROM users WHERE id=$1`,
		id).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.IsActive)
	return u, err
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username=$1`, username).Scan(&n)
	return n > 0, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=$1`, email).Scan(&n)
	return n > 0, err
}

// Chat operations

// AppendChat writes one conversation message row. Append-only; rows are never
// updated afterwards.
func (s *Store) AppendChat(ctx context.Context, userID int64, threadID, role, content string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO chats (user_id, thread_id, role, content) VALUES ($1,$2,$3,$4)`,
		userID, threadID, role, content)
	return err
}

func (s *Store) ListChatsByThread(ctx context.Context, threadID string, userID int64) ([]ChatMessage, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, thread_id, role, content, created_at FROM chats WHERE thread_id=$1 AND user_id=$2 ORDER BY created_at ASC`,
		threadID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.ThreadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Report operations

func (s *Store) ListReports(ctx context.Context, userID int64) ([]Report, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, COALESCE(thread_id,''), title, content, COALESCE(analysis,''), created_at, updated_at FROM reports WHERE user_id=$1 ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.UserID, &r.ThreadID, &r.Title, &r.Content, &r.Analysis, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetReportByThread(ctx context.Context, threadID string, userID int64) (Report, error) {
	var r Report
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(thread_id,''), title, content, COALESCE(analysis,''), created_at, updated_at FROM reports WHERE thread_id=$1 AND user_id=$2`,
		threadID, userID).Scan(&r.ID, &r.UserID, &r.ThreadID, &r.Title, &r.Content, &r.Analysis, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) GetReportByID(ctx context.Context, id, userID int64) (Report, error) {
	var r Report
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(thread_id,''), title, content, COALESCE(analysis,''), created_at, updated_at FROM reports WHERE id=$1 AND user_id=$2`,
		id, userID).Scan(&r.ID, &r.UserID, &r.ThreadID, &r.Title, &r.Content, &r.Analysis, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// UpsertReportByThread stores the final report of a workflow run, replacing
// any earlier report for the same thread.
func (s *Store) UpsertReportByThread(ctx context.Context, userID int64, threadID, title, content string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE reports SET title=$1, content=$2, updated_at=now() WHERE thread_id=$3 AND user_id=$4`,
		title, content, threadID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO reports (user_id, thread_id, title, content) VALUES ($1,$2,$3,$4)`,
		userID, threadID, title, content)
	return err
}

// UpdateReportContent refreshes a report body after a generation workflow ran
// over it.
func (s *Store) UpdateReportContent(ctx context.Context, id, userID int64, content string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE reports SET content=$1, updated_at=now() WHERE id=$2 AND user_id=$3`,
		content, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteReport removes a report and the chat history of its thread in one
// transaction.
func (s *Store) DeleteReport(ctx context.Context, id, userID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var threadID sql.NullString
	if err := tx.QueryRowContext(ctx,
		`SELECT thread_id FROM reports WHERE id=$1 AND user_id=$2`, id, userID).Scan(&threadID); err != nil {
		return err
	}
	if threadID.Valid && threadID.String != "" {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chats WHERE thread_id=$1 AND user_id=$2`, threadID.String, userID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reports WHERE id=$1 AND user_id=$2`, id, userID); err != nil {
		return err
	}
	return tx.Commit()
}
