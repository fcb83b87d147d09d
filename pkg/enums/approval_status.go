package enums

import "fmt"

// ApprovalStatus tracks the approval sub-workflow on a match.
type ApprovalStatus string

const (
	ApprovalStatusPending        ApprovalStatus = "pending"
	ApprovalStatusApproved       ApprovalStatus = "approved"
	ApprovalStatusRejected       ApprovalStatus = "rejected"
	ApprovalStatusReviewRequired ApprovalStatus = "review_required"
)

var validApprovalStatuses = []ApprovalStatus{
	ApprovalStatusPending,
	ApprovalStatusApproved,
	ApprovalStatusRejected,
	ApprovalStatusReviewRequired,
}

// String implements fmt.Stringer.
func (a ApprovalStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ApprovalStatus.
func (a ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseApprovalStatus converts raw input into an ApprovalStatus.
func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}
