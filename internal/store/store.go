package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Store wraps the Postgres connection that holds users, tasks and conversations.
type Store struct {
	DB *sql.DB
}

// Task statuses. The UI only exposes the pending -> completed transition.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Message roles persisted in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNotFound indicates the row does not exist under the given owner.
var ErrNotFound = errors.New("not found")

// Task is a single to-do item owned by one user.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Conversation is the chat thread for a user. One active thread per user,
// the most recently created one.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single chat turn. Append-only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Task operations. Every query is scoped by user_id; a task id from another
// owner behaves exactly like a missing id.

func (s *Store) CreateTask(ctx context.Context, userID, title, description string) (Task, error) {
	t := Task{UserID: userID, Title: title, Description: description, Status: TaskStatusPending}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status) VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`,
		userID, title, description, TaskStatusPending,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTasks returns the user's tasks, newest first. status narrows to
// pending/completed; search does a case-insensitive match on title and
// description. Either filter may be empty.
func (s *Store) ListTasks(ctx context.Context, userID, status, search string) ([]Task, error) {
	q := `SELECT id, user_id, title, description, status, created_at, updated_at FROM tasks WHERE user_id=$1`
	args := []interface{}{userID}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		q += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (Task, error) {
	var t Task
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, status, created_at, updated_at FROM tasks WHERE id=$1 AND user_id=$2`,
		id, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// UpdateTask sets a new title and, when description is non-nil, a new
// description, bumping updated_at.
func (s *Store) UpdateTask(ctx context.Context, userID, id, title string, description *string) (Task, error) {
	var t Task
	var err error
	if description != nil {
		err = s.DB.QueryRowContext(ctx,
			`UPDATE tasks SET title=$1, description=$2, updated_at=now() WHERE id=$3 AND user_id=$4
			 RETURNING id, user_id, title, description, status, created_at, updated_at`,
			title, *description, id, userID,
		).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	} else {
		err = s.DB.QueryRowContext(ctx,
			`UPDATE tasks SET title=$1, updated_at=now() WHERE id=$2 AND user_id=$3
			 RETURNING id, user_id, title, description, status, created_at, updated_at`,
			title, id, userID,
		).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// PatchTask applies any combination of field changes in one statement.
// Nil pointers leave the column untouched. Used by the REST surface.
func (s *Store) PatchTask(ctx context.Context, userID, id string, title, description, status *string) (Task, error) {
	var t Task
	err := s.DB.QueryRowContext(ctx,
		`UPDATE tasks SET title=COALESCE($1, title), description=COALESCE($2, description),
		        status=COALESCE($3, status), updated_at=now()
		 WHERE id=$4 AND user_id=$5
		 RETURNING id, user_id, title, description, status, created_at, updated_at`,
		title, description, status, id, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// CompleteTask marks the task completed. Re-completing an already completed
// task succeeds and leaves it completed.
func (s *Store) CompleteTask(ctx context.Context, userID, id string) (Task, error) {
	var t Task
	err := s.DB.QueryRowContext(ctx,
		`UPDATE tasks SET status=$1, updated_at=now() WHERE id=$2 AND user_id=$3
		 RETURNING id, user_id, title, description, status, created_at, updated_at`,
		TaskStatusCompleted, id, userID,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllTasks removes every task owned by the user and reports how many
// were removed. Zero is not an error.
func (s *Store) DeleteAllTasks(ctx context.Context, userID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM tasks WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CompleteAllTasks flips every pending task to completed and reports the count.
func (s *Store) CompleteAllTasks(ctx context.Context, userID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET status=$1, updated_at=now() WHERE user_id=$2 AND status=$3`,
		TaskStatusCompleted, userID, TaskStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Conversation operations

// GetOrCreateConversation returns the user's most recent conversation,
// creating one on first use.
func (s *Store) GetOrCreateConversation(ctx context.Context, userID string) (Conversation, error) {
	var c Conversation
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM conversations WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, err
	}
	c.UserID = userID
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO conversations (user_id) VALUES ($1) RETURNING id, created_at`,
		userID,
	).Scan(&c.ID, &c.CreatedAt)
	return c, err
}

func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) (Message, error) {
	m := Message{ConversationID: conversationID, Role: role, Content: content}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES ($1,$2,$3) RETURNING id, created_at`,
		conversationID, role, content,
	).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

// ListMessages returns a conversation's messages in chronological order,
// capped at the window the agent feeds back to the model.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id=$1 ORDER BY created_at ASC LIMIT 100`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
