package voicelink

import (
	"fmt"
	"strings"
)

// Validation limits.
const (
	// MaxIDLength bounds account, message, and report identifiers.
	MaxIDLength = 256

	// MaxEmailLength follows the SMTP path limit.
	MaxEmailLength = 254

	// MaxNameLength bounds display names.
	MaxNameLength = 128

	// MaxReasonLength bounds report reasons.
	MaxReasonLength = 512

	// MaxNoteLength bounds the optional report note.
	MaxNoteLength = 2048

	// MaxMediaURLLength bounds message payload references.
	MaxMediaURLLength = 2048
)

// validateID checks an account/message/report identifier.
func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidAccount, kind)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: %s id exceeds %d bytes", ErrInvalidAccount, kind, MaxIDLength)
	}
	return nil
}

// validateEmail performs a light structural check. Full address validation is
// the identity provider's job; this only rejects obviously broken input.
func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: empty email", ErrInvalidAccount)
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("%w: email exceeds %d bytes", ErrInvalidAccount, MaxEmailLength)
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: malformed email", ErrInvalidAccount)
	}
	return nil
}

func validateAccount(a Account) error {
	if err := validateID("account", a.ID); err != nil {
		return err
	}
	if err := validateEmail(a.Email); err != nil {
		return err
	}
	if len(a.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidAccount, MaxNameLength)
	}
	if a.LoginAttempts < 0 {
		return fmt.Errorf("%w: negative login attempts", ErrInvalidAccount)
	}
	return nil
}

func validateSend(senderID, recipientID, mediaURL string) error {
	if senderID == "" {
		return fmt.Errorf("%w: empty sender id", ErrInvalidMessage)
	}
	if recipientID == "" {
		return fmt.Errorf("%w: empty recipient id", ErrInvalidMessage)
	}
	if senderID == recipientID {
		return ErrSelfMessage
	}
	if mediaURL == "" {
		return fmt.Errorf("%w: empty media url", ErrInvalidMessage)
	}
	if len(mediaURL) > MaxMediaURLLength {
		return fmt.Errorf("%w: media url exceeds %d bytes", ErrInvalidMessage, MaxMediaURLLength)
	}
	return nil
}

func validateReport(voiceID, reporterID, reason, note string) error {
	if voiceID == "" {
		return fmt.Errorf("%w: empty voice id", ErrInvalidReport)
	}
	if reporterID == "" {
		return fmt.Errorf("%w: empty reporter id", ErrInvalidReport)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: empty reason", ErrInvalidReport)
	}
	if len(reason) > MaxReasonLength {
		return fmt.Errorf("%w: reason exceeds %d bytes", ErrInvalidReport, MaxReasonLength)
	}
	if len(note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d bytes", ErrInvalidReport, MaxNoteLength)
	}
	return nil
}
