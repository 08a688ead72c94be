package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/stage-intake/internal/models"
	"github.com/yukikurage/stage-intake/internal/utils"
)

var (
	// ErrStageInUse is returned when a stage still has records or scoped staff.
	ErrStageInUse = errors.New("stage repository: stage is still in use")
	// ErrTokenNotFound is returned when no unexpired reset token matches.
	ErrTokenNotFound = errors.New("reset token not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a user and appends the audit entry in one transaction.
	// An entry without a user id is attributed to the created user.
	Create(ctx context.Context, user *models.User, entry *models.AuditLog) error

	// FindByID finds a user by ID, preloading the scoped stage
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail finds a user by email address
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns every user ordered by username
	List(ctx context.Context) ([]models.User, error)

	// Delete removes a user and appends the audit entry in one transaction
	Delete(ctx context.Context, id uint64, entry *models.AuditLog) error

	// UpdatePassword replaces the password hash and appends the audit entry
	UpdatePassword(ctx context.Context, id uint64, passwordHash string, entry *models.AuditLog) error
}

// ResetTokenRepository stores password reset token digests. A user has at most
// one outstanding token and a token can be consumed once.
type ResetTokenRepository interface {
	// Issue stores a token digest for the user, replacing any previous one
	Issue(ctx context.Context, userID uint64, tokenHash string, expiry time.Time) error

	// Consume removes a token whose expiry is strictly after now and returns its owner
	Consume(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
}

// StageRepository defines the interface for stage data access
type StageRepository interface {
	// Create creates a stage and appends the audit entry
	Create(ctx context.Context, stage *models.Stage, entry *models.AuditLog) error

	// FindByID finds a stage by ID
	FindByID(ctx context.Context, id uint64) (*models.Stage, error)

	// FindByNumber finds a stage by its stage number
	FindByNumber(ctx context.Context, number int) (*models.Stage, error)

	// List returns stages ordered by stage number
	List(ctx context.Context) ([]models.Stage, error)

	// Delete removes an unused stage with its forms and appends the audit entry
	Delete(ctx context.Context, id uint64, entry *models.AuditLog) error
}

// FormRepository defines the interface for question data access
type FormRepository interface {
	// Create creates a form and appends the audit entry
	Create(ctx context.Context, form *models.Form, entry *models.AuditLog) error

	// ListByStage returns the forms of one stage in creation order
	ListByStage(ctx context.Context, stageID uint64) ([]models.Form, error)

	// ListAll returns every form with its stage, grouped by stage number
	ListAll(ctx context.Context) ([]models.Form, error)
}

// RecordRepository defines the interface for record and response data access
type RecordRepository interface {
	// CreateWithResponses stores a record, its responses and the audit entry atomically
	CreateWithResponses(ctx context.Context, record *models.Record, responses []models.Response, entry *models.AuditLog) error

	// FindByID loads a record with its stage and responses in stored order
	FindByID(ctx context.Context, id uint64) (*models.Record, error)

	// FindLatestByName loads the newest record with the given name
	FindLatestByName(ctx context.Context, name string) (*models.Record, error)

	// List returns records with their stage, newest first. A zero page limit returns every record.
	List(ctx context.Context, filter RecordFilter, page utils.PaginationParams) ([]models.Record, int64, error)

	// ListResponseRows returns every response flattened for export
	ListResponseRows(ctx context.Context) ([]ResponseRow, error)
}

// RecordFilter holds filtering options for listing records
type RecordFilter struct {
	StageID *uint64
}

// ResponseRow is one response joined to its record, stage and question.
type ResponseRow struct {
	RecordID    uint64
	RecordName  string
	StageName   string
	Question    string
	Answer      *string
	FileURL     *string
	SubmittedAt time.Time
}

// AuditLogRepository defines the interface for audit log access
type AuditLogRepository interface {
	// Append inserts a single entry
	Append(ctx context.Context, entry *models.AuditLog) error

	// List returns entries joined to usernames, newest first
	List(ctx context.Context, page utils.PaginationParams) ([]AuditLogRow, int64, error)
}

// AuditLogRow is an audit entry with the actor's username, nil when the
// user has been deleted.
type AuditLogRow struct {
	ID        uint64
	UserID    uint64
	Username  *string
	Action    string
	CreatedAt time.Time
}
