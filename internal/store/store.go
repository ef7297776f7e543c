package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/config"
	"github.com/andresthedesigner/videodaddychat/internal/dbx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Store is the persistence contract shared by every backend. Lookups of a
// missing row return common.ErrorNotFound.
type Store interface {
	// Users
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	UpsertUser(ctx context.Context, p UserProfile) (*User, error)
	TouchUser(ctx context.Context, userID string, at int64, countMessage bool) error
	UpdateFavoriteModels(ctx context.Context, userID string, models []string) error
	UpdateSystemPrompt(ctx context.Context, userID string, prompt *string) error

	// Usage counters
	GetUsage(ctx context.Context, key UsageKey) (UsageRecord, error)
	IncrementUsage(ctx context.Context, key UsageKey, dayStart int64) error
	ConsumeUsage(ctx context.Context, key UsageKey, limit, dayStart int64) (bool, error)

	// Projects
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, userID string) ([]Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) ([]string, error)

	// Chats
	CreateChat(ctx context.Context, c *Chat) error
	GetChat(ctx context.Context, id string) (*Chat, error)
	ListChats(ctx context.Context, userID string) ([]Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string, at int64) error
	UpdateChatModel(ctx context.Context, id, model string, at int64) error
	SetChatPinned(ctx context.Context, id string, pinned bool, pinnedAt *int64) error
	SetChatPublic(ctx context.Context, id string, public bool) error
	DeleteChat(ctx context.Context, id string) ([]string, error)

	// Messages
	AddMessages(ctx context.Context, chatID string, msgs []*Message) error
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
	LastMessages(ctx context.Context, chatID string, n int) ([]Message, error)
	DeleteMessagesFrom(ctx context.Context, chatID string, from int64) (int64, error)
	ClearMessages(ctx context.Context, chatID string) (int64, error)

	// API keys
	ListUserKeys(ctx context.Context, userID string) ([]UserKey, error)
	GetUserKey(ctx context.Context, userID, provider string) (*UserKey, error)
	UpsertUserKey(ctx context.Context, k *UserKey) (bool, error)
	DeleteUserKey(ctx context.Context, userID, provider string) error

	// Preferences
	GetPreferences(ctx context.Context, userID string) (*UserPreferences, error)
	SavePreferences(ctx context.Context, p *UserPreferences) error

	// Feedback
	CreateFeedback(ctx context.Context, f *Feedback) error
	ListFeedback(ctx context.Context, limit int) ([]Feedback, error)

	// Attachments
	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id string) (*Attachment, error)
	ListAttachments(ctx context.Context, chatID string) ([]Attachment, error)
	CountUploadsSince(ctx context.Context, userID string, since int64) (int, error)
	DeleteAttachment(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Backend() string
	Close() error
}

// Open builds the backend selected by cfg.Database.Backend and applies
// pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err = NewSQLiteStore(SQLiteDriver, cfg.SQLitePath)
	case config.BackendPostgres:
		s, err = NewPostgresStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound per driver by sqlx.
type sqlStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func newSQLStore(db *sqlx.DB) *sqlStore {
	return &sqlStore{db: db, now: time.Now}
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *sqlStore) migrate(ctx context.Context, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, s.db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) get(ctx context.Context, q dbx.Querier, dest any, query string, args ...any) error {
	err := q.GetContext(ctx, dest, q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return err
}

func (s *sqlStore) selectAll(ctx context.Context, q dbx.Querier, dest any, query string, args ...any) error {
	return q.SelectContext(ctx, dest, q.Rebind(query), args...)
}

func (s *sqlStore) exec(ctx context.Context, q dbx.Querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// execOne runs an UPDATE or DELETE that must touch a row.
func (s *sqlStore) execOne(ctx context.Context, q dbx.Querier, query string, args ...any) error {
	n, err := s.exec(ctx, q, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}
