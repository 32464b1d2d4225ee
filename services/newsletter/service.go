package newsletter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"spot/internal/database"
	"spot/models"
	"spot/services/mail"
)

var (
	ErrEmailRequired         = errors.New("email is required")
	ErrAudienceNotConfigured = errors.New("audience id is not configured")
	ErrSubscribeFailed       = errors.New("failed to subscribe to newsletter")
)

type contactCreator interface {
	CreateContact(ctx context.Context, audienceID string, contact mail.Contact) (string, error)
}

type recorder interface {
	RecordSignup(ctx context.Context, rec *database.SignupRecord) error
}

var (
	_ contactCreator = (*mail.Client)(nil)
	_ recorder       = (*database.SubmissionRepository)(nil)
)

// Service adds newsletter signups to the mailing audience.
type Service struct {
	audienceID string
	contacts   contactCreator
	ledger     recorder
}

// NewService creates the service. ledger may be nil.
func NewService(audienceID string, contacts contactCreator, ledger recorder) *Service {
	return &Service{audienceID: strings.TrimSpace(audienceID), contacts: contacts, ledger: ledger}
}

// Subscribe creates an audience contact for signup and returns its id.
func (s *Service) Subscribe(ctx context.Context, signup models.NewsletterSignup) (string, error) {
	email := strings.TrimSpace(signup.Email)
	if email == "" {
		return "", ErrEmailRequired
	}
	if s.audienceID == "" {
		log.Printf("[newsletter] audience id is not configured")
		return "", ErrAudienceNotConfigured
	}

	contact := mail.Contact{
		Email:        email,
		FirstName:    strings.TrimSpace(signup.FirstName),
		LastName:     strings.TrimSpace(signup.LastName),
		Unsubscribed: false,
	}
	id, err := s.contacts.CreateContact(ctx, s.audienceID, contact)
	s.record(ctx, contact, id, err)
	if err != nil {
		log.Printf("[newsletter] subscription error for %s: %v", email, err)
		return "", fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	log.Printf("[newsletter] subscribed %s (contact=%s)", email, id)
	return id, nil
}

func (s *Service) record(ctx context.Context, c mail.Contact, id string, subErr error) {
	if s.ledger == nil {
		return
	}
	rec := &database.SignupRecord{Email: c.Email, Status: database.SubmissionSent}
	if c.FirstName != "" {
		rec.FirstName = &c.FirstName
	}
	if c.LastName != "" {
		rec.LastName = &c.LastName
	}
	if id != "" {
		rec.ContactID = &id
	}
	if subErr != nil {
		msg := subErr.Error()
		rec.Status = database.SubmissionFailed
		rec.LastError = &msg
	}
	if err := s.ledger.RecordSignup(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("[newsletter] failed to record signup: %v", err)
	}
}
