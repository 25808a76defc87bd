package enums

import "fmt"

// EmailOutboxStatus tracks delivery of a queued email.
type EmailOutboxStatus string

const (
	EmailOutboxPending  EmailOutboxStatus = "PENDING"
	EmailOutboxSent     EmailOutboxStatus = "SENT"
	EmailOutboxTerminal EmailOutboxStatus = "TERMINAL"
)

var validEmailOutboxStatuses = []EmailOutboxStatus{
	EmailOutboxPending,
	EmailOutboxSent,
	EmailOutboxTerminal,
}

// IsValid reports whether the value matches a known outbox status.
func (s EmailOutboxStatus) IsValid() bool {
	for _, candidate := range validEmailOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEmailOutboxStatus converts raw input into EmailOutboxStatus.
func ParseEmailOutboxStatus(value string) (EmailOutboxStatus, error) {
	for _, candidate := range validEmailOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email outbox status %q", value)
}
