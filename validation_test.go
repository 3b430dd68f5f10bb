package voicelink

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	if err := validateID("account", "user1"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := validateID("account", ""); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("empty id: got %v", err)
	}
	if err := validateID("account", strings.Repeat("x", MaxIDLength+1)); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("oversized id: got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b", "user@example.com", "user+tag@sub.example.com"}
	for _, e := range valid {
		if err := validateEmail(e); err != nil {
			t.Errorf("validateEmail(%q) = %v, want nil", e, err)
		}
	}

	invalid := []string{"", "no-at-sign", "@example.com", "user@", strings.Repeat("x", MaxEmailLength) + "@b"}
	for _, e := range invalid {
		if err := validateEmail(e); !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("validateEmail(%q) = %v, want ErrInvalidAccount", e, err)
		}
	}
}

func TestValidateSend(t *testing.T) {
	if err := validateSend("alice", "bob", "s3://b/k"); err != nil {
		t.Errorf("valid send rejected: %v", err)
	}
	if err := validateSend("alice", "alice", "s3://b/k"); !errors.Is(err, ErrSelfMessage) {
		t.Errorf("self send: got %v", err)
	}
	if err := validateSend("alice", "bob", ""); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("empty media url: got %v", err)
	}
	if err := validateSend("alice", "bob", strings.Repeat("x", MaxMediaURLLength+1)); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("oversized media url: got %v", err)
	}
}

func TestValidateReport(t *testing.T) {
	if err := validateReport("dm-100-aaaa", "alice", "spam", "note"); err != nil {
		t.Errorf("valid report rejected: %v", err)
	}
	if err := validateReport("dm-100-aaaa", "alice", "   ", ""); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("blank reason: got %v", err)
	}
	if err := validateReport("dm-100-aaaa", "alice", strings.Repeat("x", MaxReasonLength+1), ""); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("oversized reason: got %v", err)
	}
	if err := validateReport("dm-100-aaaa", "alice", "spam", strings.Repeat("x", MaxNoteLength+1)); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("oversized note: got %v", err)
	}
}
