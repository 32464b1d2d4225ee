package models

// ContactSubmission is the body of the contact form.
type ContactSubmission struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// NewsletterSignup is the body of the newsletter form.
type NewsletterSignup struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
