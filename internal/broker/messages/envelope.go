package messages

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Event types carried on the events topic.
const (
	TypePackageUpdated          = "package.updated"
	TypeAlertRaised             = "alert.raised"
	TypePreregistrationApproved = "preregistration.approved"
	TypeReturnApproved          = "return.approved"
	TypePasswordResetRequested  = "password_reset.requested"
)

type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps a fresh id.
func NewEnvelope(typ string, at time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "marshal payload")
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

func (e Envelope) Decode(dst any) error {
	return errors.Wrap(json.Unmarshal(e.Payload, dst), "unmarshal payload")
}

type PackageUpdated struct {
	PackageID      int64     `json:"package_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	Location       string    `json:"location,omitempty"`
	EventID        *int64    `json:"event_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AlertRaised struct {
	AlertID        int64   `json:"alert_id"`
	TrackingNumber string  `json:"tracking_number"`
	Severity       string  `json:"severity"`
	DelayHours     float64 `json:"delay_hours"`
}

type PreregistrationApproved struct {
	PreregistrationID int64  `json:"preregistration_id"`
	PackageID         int64  `json:"package_id"`
	TrackingNumber    string `json:"tracking_number"`
	SenderEmail       string `json:"sender_email"`
}

type ReturnApproved struct {
	RequestID            int64  `json:"request_id"`
	TrackingNumber       string `json:"tracking_number"`
	ReturnTrackingNumber string `json:"return_tracking_number"`
	UserEmail            string `json:"user_email,omitempty"`
}

// PasswordResetRequested is an audit record. The token itself never leaves
// the API process.
type PasswordResetRequested struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
