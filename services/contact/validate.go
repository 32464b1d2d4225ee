package contact

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"spot/models"
)

const (
	MsgNameTooShort     = "Name must be at least 2 characters."
	MsgLastNameTooShort = "Last name must be at least 2 characters."
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgMessageTooShort  = "Message must be at least 10 characters."
)

// ValidationError lists the rejected fields with their messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid form data: %s", strings.Join(names, ", "))
}

// Validate checks a contact submission. Surrounding whitespace is ignored.
func Validate(sub models.ContactSubmission) error {
	fields := make(map[string]string)
	if utf8.RuneCountInString(strings.TrimSpace(sub.Name)) < 2 {
		fields["name"] = MsgNameTooShort
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.LastName)) < 2 {
		fields["lastName"] = MsgLastNameTooShort
	}
	if !ValidEmail(sub.Email) {
		fields["email"] = MsgInvalidEmail
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.Message)) < 10 {
		fields["message"] = MsgMessageTooShort
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

var emailProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(true), idna.VerifyDNSLength(true))

// ValidEmail accepts a bare address (no display name) whose domain is a
// valid, dotted host name. Internationalized domains are allowed.
func ValidEmail(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return false
	}
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	domain, err := emailProfile.ToASCII(addr[at+1:])
	if err != nil {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	return len(labels[len(labels)-1]) >= 2
}
