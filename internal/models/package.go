package models

import "time"

// PackageStatus is the handling state of a package. Tracking events carry the
// same values in event_type and rewrite the package status on insert.
type PackageStatus string

const (
	PackageStatusInProcess  PackageStatus = "En proceso"
	PackageStatusRegistered PackageStatus = "registrado"
	PackageStatusReceived   PackageStatus = "received"
	PackageStatusPending    PackageStatus = "pending"
	// PackageStatusPendiente is what the admin history screen writes.
	PackageStatusPendiente  PackageStatus = "pendiente"
	PackageStatusClassified PackageStatus = "clasificado"
	PackageStatusInTransit  PackageStatus = "en_transito"
	PackageStatusDelayed    PackageStatus = "retrasado"
	PackageStatusDelivered  PackageStatus = "entregado"
)

const DefaultPackagePriority = "normal"

var knownPackageStatuses = map[PackageStatus]struct{}{
	PackageStatusInProcess:  {},
	PackageStatusRegistered: {},
	PackageStatusReceived:   {},
	PackageStatusPending:    {},
	PackageStatusPendiente:  {},
	PackageStatusClassified: {},
	PackageStatusInTransit:  {},
	PackageStatusDelayed:    {},
	PackageStatusDelivered:  {},
}

func ParsePackageStatus(s string) (PackageStatus, error) {
	st := PackageStatus(s)
	if _, ok := knownPackageStatuses[st]; !ok {
		return "", NewValidationError("Estado de paquete desconocido: " + s)
	}
	return st, nil
}

func (s PackageStatus) Terminal() bool { return s == PackageStatusDelivered }

// ReturnEligible reports whether a return may still be requested.
func (s PackageStatus) ReturnEligible() bool {
	return s == PackageStatusReceived || s == PackageStatusPending
}

// CheckPackageTransition rejects any change out of a terminal status.
// Rows written before the enumeration existed may hold unknown values; those
// are treated as non-terminal.
func CheckPackageTransition(from, to PackageStatus) error {
	if _, ok := knownPackageStatuses[to]; !ok {
		return NewValidationError("Estado de paquete desconocido: " + string(to))
	}
	if from.Terminal() {
		return &TransitionError{Entity: "package", From: string(from), To: string(to)}
	}
	return nil
}

type Package struct {
	ID                    uint64        `json:"id"`
	TrackingNumber        string        `json:"tracking_number"`
	Description           string        `json:"description"`
	Status                PackageStatus `json:"status"`
	Location              string        `json:"location"`
	UserEmail             string        `json:"user_email"`
	SenderName            string        `json:"sender_name"`
	SenderEmail           string        `json:"sender_email"`
	SenderPhone           string        `json:"sender_phone"`
	SenderAddress         string        `json:"sender_address"`
	RecipientName         string        `json:"recipient_name"`
	RecipientEmail        string        `json:"recipient_email"`
	RecipientPhone        string        `json:"recipient_phone"`
	RecipientAddress      string        `json:"recipient_address"`
	Weight                float64       `json:"weight"`
	Cost                  float64       `json:"cost"`
	Priority              string        `json:"priority"`
	Origin                string        `json:"origin"`
	Destination           string        `json:"destination"`
	EstimatedDeliveryDate string        `json:"estimated_delivery_date"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`

	// Filled by list queries only.
	EventsCount   int        `json:"events_count"`
	LastEventTime *time.Time `json:"last_event_time,omitempty"`

	Events []*TrackingEvent `json:"events,omitempty"`
}

// PackageClock is the slice of a package the delay sweep needs.
type PackageClock struct {
	ID             uint64
	TrackingNumber string
	UpdatedAt      time.Time
}

type TrackingEvent struct {
	ID          uint64    `json:"id"`
	PackageID   uint64    `json:"package_id"`
	EventType   string    `json:"event_type"`
	Location    string    `json:"location"`
	Operator    string    `json:"operator"`
	Notes       string    `json:"notes"`
	Coordinates string    `json:"coordinates,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PackageCreateInput struct {
	TrackingNumber        string
	Description           string
	UserEmail             string
	SenderName            string
	SenderEmail           string
	SenderPhone           string
	SenderAddress         string
	RecipientName         string
	RecipientEmail        string
	RecipientPhone        string
	RecipientAddress      string
	Origin                string
	Destination           string
	Weight                float64
	Cost                  float64
	Priority              string
	Status                PackageStatus
	EstimatedDeliveryDate string
}

// TrackingEventInput describes a new event for the package identified by
// TrackingNumber. The package status/location follow the event.
type TrackingEventInput struct {
	TrackingNumber string
	EventType      PackageStatus
	Location       string
	Operator       string
	Notes          string
	Timestamp      time.Time
}

type TrackingEventUpdate struct {
	ID          uint64
	EventType   string
	Location    string
	Operator    string
	Notes       string
	Coordinates string
}
