package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/session"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CaseRecord is the submitted respondent answer for a case. Flags, answers
// and the session snapshot are stored as JSON documents.
type CaseRecord struct {
	ID          string `gorm:"primaryKey"`
	CaseID      string `gorm:"index"`
	UserID      string `gorm:"index;not null"`
	SessionID   string `gorm:"uniqueIndex;not null"`
	Reason      string
	Response    string
	FlagsJSON   string `gorm:"column:flags;type:text"`
	AnswersJSON string `gorm:"column:answers;type:text"`
	SessionJSON string `gorm:"column:session;type:text"`
	SubmittedAt time.Time
	CreatedAt   time.Time
}

// Flags decodes the stored derived flags.
func (r *CaseRecord) Flags() (session.Flags, error) {
	var f session.Flags
	if r.FlagsJSON == "" {
		return f, nil
	}
	if err := json.Unmarshal([]byte(r.FlagsJSON), &f); err != nil {
		return f, fmt.Errorf("unmarshal flags: %w", err)
	}
	return f, nil
}

// Answers decodes the stored check-your-answers record.
func (r *CaseRecord) Answers() ([]journey.Answer, error) {
	var a []journey.Answer
	if r.AnswersJSON == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(r.AnswersJSON), &a); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return a, nil
}

// CaseStore persists submitted case records.
type CaseStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenCaseStore opens the SQLite database at path and migrates it. Use
// ":memory:" for a throwaway store.
func OpenCaseStore(path string, log *slog.Logger) (*CaseStore, error) {
	if log == nil {
		log = slog.Default()
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&CaseRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &CaseStore{db: db, logger: log}, nil
}

// Close releases the database.
func (c *CaseStore) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Submit builds a case record from the session and the answers summary and
// stores it. A session files at most one record: submitting it again
// returns the record already stored.
func (c *CaseStore) Submit(ctx context.Context, sess *session.Session, response string, answers []journey.Answer) (*CaseRecord, error) {
	if sess.ID == "" {
		return nil, fmt.Errorf("session id: %w", ErrInvalidKey)
	}
	existing, err := c.BySession(ctx, sess.ID)
	switch {
	case err == nil:
		c.logger.Info("Case record already stored", "record_id", existing.ID, "session_id", sess.ID)
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	flags, err := json.Marshal(sess.DerivedFlags())
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	ans, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	snapshot, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	submitted := time.Now().UTC()
	if sess.SubmittedAt != nil {
		submitted = *sess.SubmittedAt
	}

	rec := &CaseRecord{
		ID:          "case-" + uuid.New().String(),
		CaseID:      sess.CaseID,
		UserID:      sess.UserID,
		SessionID:   sess.ID,
		Reason:      string(sess.Petition().ReasonForDivorce),
		Response:    response,
		FlagsJSON:   string(flags),
		AnswersJSON: string(ans),
		SessionJSON: string(snapshot),
		SubmittedAt: submitted,
	}
	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("store case record: %w", err)
	}

	c.logger.Info("Case record stored", "record_id", rec.ID, "case_id", rec.CaseID)
	return rec, nil
}

// Get returns a case record by its record ID.
func (c *CaseStore) Get(ctx context.Context, id string) (*CaseRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("record id: %w", ErrInvalidKey)
	}
	var rec CaseRecord
	if err := c.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get case record: %w", err)
	}
	return &rec, nil
}

// BySession returns the record filed from a session.
func (c *CaseStore) BySession(ctx context.Context, sessionID string) (*CaseRecord, error) {
	var rec CaseRecord
	if err := c.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get case record by session: %w", err)
	}
	return &rec, nil
}

// ListByUser returns a user's records, newest first.
func (c *CaseStore) ListByUser(ctx context.Context, userID string) ([]CaseRecord, error) {
	var recs []CaseRecord
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).Order("submitted_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list case records: %w", err)
	}
	return recs, nil
}
