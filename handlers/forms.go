package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"spot/models"
	"spot/services/contact"
	"spot/services/newsletter"
)

type contactSubmitter interface {
	Submit(ctx context.Context, sub models.ContactSubmission) (string, error)
}

type newsletterSubscriber interface {
	Subscribe(ctx context.Context, signup models.NewsletterSignup) (string, error)
}

var (
	_ contactSubmitter     = (*contact.Service)(nil)
	_ newsletterSubscriber = (*newsletter.Service)(nil)
)

// FormsHandler serves the contact form and the newsletter signup.
type FormsHandler struct {
	Contact    contactSubmitter
	Newsletter newsletterSubscriber
}

func NewFormsHandler(c contactSubmitter, n newsletterSubscriber) *FormsHandler {
	return &FormsHandler{Contact: c, Newsletter: n}
}

// SubmitContact validates the form and emails it to the admin and the submitter.
func (h *FormsHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var sub models.ContactSubmission
	if err := decodeBody(w, r, &sub); err != nil {
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	_, err := h.Contact.Submit(r.Context(), sub)
	if err != nil {
		var verr *contact.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   "Invalid form data",
				"details": verr.Fields,
			})
		case errors.Is(err, contact.ErrMisconfigured):
			jsonError(w, "Server misconfiguration", http.StatusInternalServerError)
		case errors.Is(err, contact.ErrSendFailed):
			jsonError(w, "Failed to send email", http.StatusInternalServerError)
		default:
			log.Printf("[contact] server error: %v", err)
			jsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Email sent successfully",
	})
}

// SubscribeNewsletter adds the signup to the mailing audience.
func (h *FormsHandler) SubscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var signup models.NewsletterSignup
	if err := decodeBody(w, r, &signup); err != nil {
		subscribeFailed(w, "invalid request body")
		return
	}

	id, err := h.Newsletter.Subscribe(r.Context(), signup)
	if err != nil {
		switch {
		case errors.Is(err, newsletter.ErrEmailRequired):
			jsonError(w, "Email is required", http.StatusBadRequest)
		case errors.Is(err, newsletter.ErrAudienceNotConfigured):
			jsonError(w, "Audience ID is not configured", http.StatusInternalServerError)
		default:
			subscribeFailed(w, strings.TrimPrefix(err.Error(), newsletter.ErrSubscribeFailed.Error()+": "))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully subscribed to newsletter",
		"data":    map[string]string{"id": id},
	})
}

func subscribeFailed(w http.ResponseWriter, details string) {
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"error":   "Failed to subscribe to newsletter",
		"details": details,
	})
}
