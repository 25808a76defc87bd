package enums

import "fmt"

// TopupStatus tracks an admin review of a bank transfer.
type TopupStatus string

const (
	TopupStatusPending  TopupStatus = "PENDING"
	TopupStatusApproved TopupStatus = "APPROVED"
	TopupStatusRejected TopupStatus = "REJECTED"
)

var validTopupStatuses = []TopupStatus{
	TopupStatusPending,
	TopupStatusApproved,
	TopupStatusRejected,
}

// String implements fmt.Stringer.
func (s TopupStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TopupStatus.
func (s TopupStatus) IsValid() bool {
	for _, candidate := range validTopupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTopupStatus converts raw input into TopupStatus.
func ParseTopupStatus(value string) (TopupStatus, error) {
	for _, candidate := range validTopupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid topup status %q", value)
}

// TopupDecision is the admin verdict on a pending request.
type TopupDecision string

const (
	TopupDecisionApprove TopupDecision = "approve"
	TopupDecisionReject  TopupDecision = "reject"
)

// ParseTopupDecision converts raw input into TopupDecision.
func ParseTopupDecision(value string) (TopupDecision, error) {
	switch TopupDecision(value) {
	case TopupDecisionApprove, TopupDecisionReject:
		return TopupDecision(value), nil
	}
	return "", fmt.Errorf("invalid topup decision %q", value)
}
