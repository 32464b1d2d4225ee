package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the delivery outcome of a form submission.
type SubmissionStatus string

const (
	SubmissionSent   SubmissionStatus = "sent"
	SubmissionFailed SubmissionStatus = "failed"
)

// ContactRecord is one row of contact_submissions.
type ContactRecord struct {
	ID        string
	Name      string
	LastName  string
	Email     string
	Message   string
	MessageID *string
	Status    SubmissionStatus
	LastError *string
	CreatedAt time.Time
}

// SignupRecord is one row of newsletter_signups.
type SignupRecord struct {
	ID        string
	Email     string
	FirstName *string
	LastName  *string
	ContactID *string
	Status    SubmissionStatus
	LastError *string
	CreatedAt time.Time
}

// SubmissionRepository stores contact submissions and newsletter signups.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// RecordContact inserts rec, filling ID and CreatedAt when unset.
func (r *SubmissionRepository) RecordContact(ctx context.Context, rec *ContactRecord) error {
	fillIdentity(&rec.ID, &rec.CreatedAt)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_submissions (id, name, last_name, email, message, message_id, status, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.LastName, rec.Email, rec.Message, rec.MessageID, string(rec.Status), rec.LastError, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact submission: %w", err)
	}
	return nil
}

// RecordSignup inserts rec, filling ID and CreatedAt when unset.
func (r *SubmissionRepository) RecordSignup(ctx context.Context, rec *SignupRecord) error {
	fillIdentity(&rec.ID, &rec.CreatedAt)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_signups (id, email, first_name, last_name, contact_id, status, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Email, rec.FirstName, rec.LastName, rec.ContactID, string(rec.Status), rec.LastError, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert newsletter signup: %w", err)
	}
	return nil
}

// CountContacts returns the number of contact submissions with status, or all when status is empty.
func (r *SubmissionRepository) CountContacts(ctx context.Context, status SubmissionStatus) (int, error) {
	return r.count(ctx, "contact_submissions", status)
}

// CountSignups is CountContacts for newsletter signups.
func (r *SubmissionRepository) CountSignups(ctx context.Context, status SubmissionStatus) (int, error) {
	return r.count(ctx, "newsletter_signups", status)
}

func (r *SubmissionRepository) count(ctx context.Context, table string, status SubmissionStatus) (int, error) {
	var (
		n   int
		err error
	)
	if status == "" {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE status = ?", string(status)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// RecentContacts returns up to limit submissions, newest first.
func (r *SubmissionRepository) RecentContacts(ctx context.Context, limit int) ([]ContactRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, last_name, email, message, message_id, status, last_error, created_at
		FROM contact_submissions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query contact submissions: %w", err)
	}
	defer rows.Close()

	var out []ContactRecord
	for rows.Next() {
		var (
			rec       ContactRecord
			status    string
			messageID sql.NullString
			lastError sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.LastName, &rec.Email, &rec.Message,
			&messageID, &status, &lastError, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact submission: %w", err)
		}
		rec.Status = SubmissionStatus(status)
		rec.MessageID = nullableString(messageID)
		rec.LastError = nullableString(lastError)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func fillIdentity(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = time.Now().UTC()
	}
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
