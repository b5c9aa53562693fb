package models

import "time"

const (
	AlertTypeInternalMonitoring = "internal_monitoring"

	// SystemUserEmail owns alerts opened by the delay sweep.
	SystemUserEmail = "system"
)

type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Title returns the severity with an upper-cased first letter ("Critical").
func (s Severity) Title() string {
	if s == "" {
		return ""
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

type AlertStatus string

const (
	AlertStatusActive AlertStatus = "active"
	AlertStatusSolved AlertStatus = "solved"
)

func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch AlertStatus(s) {
	case AlertStatusActive, AlertStatusSolved:
		return AlertStatus(s), true
	}
	return "", false
}

// CheckAlertTransition allows active -> solved and solved -> active only.
func CheckAlertTransition(from, to AlertStatus) error {
	if (from == AlertStatusActive && to == AlertStatusSolved) || (from == AlertStatusSolved && to == AlertStatusActive) {
		return nil
	}
	return &TransitionError{Entity: "alert", From: string(from), To: string(to)}
}

type Alert struct {
	ID              uint64      `json:"id"`
	UserEmail       string      `json:"user_email"`
	PackageTracking string      `json:"package_tracking"`
	AlertType       string      `json:"alert_type"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Severity        Severity    `json:"severity,omitempty"`
	Status          AlertStatus `json:"status"`
	SMSEnabled      bool        `json:"sms_enabled"`
	EmailEnabled    bool        `json:"email_enabled"`
	PushEnabled     bool        `json:"push_enabled"`
	CreatedAt       time.Time   `json:"created_at"`
	SolvedAt        *time.Time  `json:"solved_at,omitempty"`

	PackageDescription *string `json:"package_description"`
}

type AlertFilter struct {
	UserEmail string
	AlertType string
	Status    AlertStatus
}

type AlertChannels struct {
	SMS   bool
	Email bool
	Push  bool
}
