package contact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"spot/internal/database"
	"spot/models"
	"spot/services/mail"
)

var (
	// ErrMisconfigured means the mail key or admin address is missing.
	ErrMisconfigured = errors.New("server misconfiguration")
	// ErrSendFailed wraps a delivery failure from the mail provider.
	ErrSendFailed = errors.New("failed to send email")
)

type mailer interface {
	IsConfigured() bool
	SendEmail(ctx context.Context, msg mail.Email) (string, error)
}

type recorder interface {
	RecordContact(ctx context.Context, rec *database.ContactRecord) error
}

var (
	_ mailer   = (*mail.Client)(nil)
	_ recorder = (*database.SubmissionRepository)(nil)
)

// Config carries the sender identity and the admin recipient.
type Config struct {
	From       string
	AdminEmail string
	SiteName   string
	SiteURL    string
}

// Service validates contact submissions and emails them to the admin and the submitter.
type Service struct {
	cfg    Config
	mailer mailer
	ledger recorder
	now    func() time.Time
}

// NewService creates the service. ledger may be nil.
func NewService(cfg Config, m mailer, ledger recorder) *Service {
	if cfg.SiteName == "" {
		cfg.SiteName = "Astra UI"
	}
	return &Service{cfg: cfg, mailer: m, ledger: ledger, now: time.Now}
}

// Submit validates sub and sends it. It returns the provider message id.
func (s *Service) Submit(ctx context.Context, sub models.ContactSubmission) (string, error) {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		log.Printf("[contact] mail api key is not configured")
		return "", ErrMisconfigured
	}
	if err := Validate(sub); err != nil {
		return "", err
	}
	admin := strings.TrimSpace(s.cfg.AdminEmail)
	if admin == "" {
		log.Printf("[contact] admin email is not configured")
		return "", ErrMisconfigured
	}

	sub = models.ContactSubmission{
		Name:     strings.TrimSpace(sub.Name),
		LastName: strings.TrimSpace(sub.LastName),
		Email:    strings.TrimSpace(sub.Email),
		Message:  strings.TrimSpace(sub.Message),
	}
	html, text, err := renderBodies(sub, s.cfg.SiteName, s.cfg.SiteURL, s.now())
	if err != nil {
		return "", err
	}

	msgID, sendErr := s.mailer.SendEmail(ctx, mail.Email{
		From:    s.cfg.From,
		To:      []string{admin, sub.Email},
		Subject: fmt.Sprintf("%s Submission from %s %s", s.cfg.SiteName, sub.Name, sub.LastName),
		ReplyTo: sub.Email,
		Text:    text,
		HTML:    html,
	})
	s.record(ctx, sub, msgID, sendErr)
	if sendErr != nil {
		log.Printf("[contact] error sending email from %s: %v", sub.Email, sendErr)
		return "", fmt.Errorf("%w: %w", ErrSendFailed, sendErr)
	}

	log.Printf("[contact] sent submission from %s (id=%s)", sub.Email, msgID)
	return msgID, nil
}

func (s *Service) record(ctx context.Context, sub models.ContactSubmission, msgID string, sendErr error) {
	if s.ledger == nil {
		return
	}
	rec := &database.ContactRecord{
		Name:     sub.Name,
		LastName: sub.LastName,
		Email:    sub.Email,
		Message:  sub.Message,
		Status:   database.SubmissionSent,
	}
	if msgID != "" {
		rec.MessageID = &msgID
	}
	if sendErr != nil {
		msg := sendErr.Error()
		rec.Status = database.SubmissionFailed
		rec.LastError = &msg
	}
	// detached so a cancelled request still leaves a trace
	if err := s.ledger.RecordContact(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("[contact] failed to record submission: %v", err)
	}
}
