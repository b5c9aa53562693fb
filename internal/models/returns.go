package models

import "time"

type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "pending"
	ReturnApproved ReturnStatus = "approved"
	ReturnRejected ReturnStatus = "rejected"
)

func ParseReturnStatus(s string) (ReturnStatus, bool) {
	switch ReturnStatus(s) {
	case ReturnPending, ReturnApproved, ReturnRejected:
		return ReturnStatus(s), true
	}
	return "", false
}

// CheckReturnTransition: a request is decided once, from pending.
func CheckReturnTransition(from, to ReturnStatus) error {
	if from == ReturnPending && (to == ReturnApproved || to == ReturnRejected) {
		return nil
	}
	return &TransitionError{Entity: "return request", From: string(from), To: string(to)}
}

type ReturnRequest struct {
	ID                    uint64       `json:"id"`
	UserEmail             string       `json:"user_email"`
	PackageTrackingNumber string       `json:"package_tracking_number"`
	FirstName             string       `json:"first_name"`
	LastName              string       `json:"last_name"`
	Reason                string       `json:"reason"`
	Status                ReturnStatus `json:"status"`
	RejectionComment      *string      `json:"rejection_comment"`
	ReturnTrackingNumber  *string      `json:"return_tracking_number"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

type ReturnRequestInput struct {
	UserEmail      string
	TrackingNumber string
	FirstName      string
	LastName       string
	Reason         string
}

// Return is the archived snapshot of a package that left active tracking.
type Return struct {
	ID                     uint64    `json:"id"`
	OriginalTrackingNumber string    `json:"original_tracking_number"`
	ReturnTrackingNumber   string    `json:"return_tracking_number"`
	Description            string    `json:"description"`
	SenderName             string    `json:"sender_name"`
	RecipientName          string    `json:"recipient_name"`
	Origin                 string    `json:"origin"`
	Destination            string    `json:"destination"`
	Weight                 float64   `json:"weight"`
	Cost                   float64   `json:"cost"`
	CreatedAt              time.Time `json:"created_at"`
}
