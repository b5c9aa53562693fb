package models

import "time"

type PreregistrationStatus string

const (
	PreregistrationPending  PreregistrationStatus = "Pendiente"
	PreregistrationApproved PreregistrationStatus = "Aprobado"
)

// CheckPreregistrationTransition: Pendiente -> Aprobado is the only move.
// An empty status is a legacy row and counts as Pendiente.
func CheckPreregistrationTransition(from, to PreregistrationStatus) error {
	if from == "" {
		from = PreregistrationPending
	}
	if from == PreregistrationPending && to == PreregistrationApproved {
		return nil
	}
	return &TransitionError{Entity: "preregistration", From: string(from), To: string(to)}
}

type Preregistration struct {
	ID                     uint64                `json:"id"`
	UserEmail              string                `json:"user_email"`
	TrackingNumber         string                `json:"trackingNumber"`
	SenderName             string                `json:"sender_name"`
	SenderPhone            string                `json:"sender_phone"`
	SenderAddress          string                `json:"sender_address"`
	SenderEmail            string                `json:"sender_email"`
	RecipientName          string                `json:"recipient_name"`
	RecipientPhone         string                `json:"recipient_phone"`
	RecipientAddress       string                `json:"recipient_address"`
	RecipientEmail         string                `json:"recipient_email"`
	Weight                 float64               `json:"weight"`
	CargoType              string                `json:"cargo_type"`
	OriginCity             string                `json:"origin_city"`
	DestinationCity        string                `json:"destination_city"`
	Description            string                `json:"description"`
	Priority               string                `json:"priority"`
	ShippingType           string                `json:"shipping_type"`
	Cost                   float64               `json:"cost"`
	EstimatedDeliveryDate  string                `json:"estimated_delivery_date"`
	Status                 PreregistrationStatus `json:"status"`
	ApprovedAt             *time.Time            `json:"approved_at"`
	ApprovedTrackingNumber *string               `json:"approved_tracking_number"`
	CreatedAt              time.Time             `json:"created_at"`
}

type PreregistrationFilter struct {
	Search string
	Status PreregistrationStatus
}

type PreregistrationUpdate struct {
	SenderName     string
	SenderEmail    string
	RecipientName  string
	RecipientEmail string
	Weight         float64
	Cost           float64
}

// PreregistrationApproval is the outcome of turning a pre-registration into a package.
type PreregistrationApproval struct {
	PreregistrationID uint64
	TrackingNumber    string
	PackageID         uint64
}

// PackageInput is the package an approval creates: contact, weight and cost
// are copied as-is, the status starts at "En proceso".
func (p *Preregistration) PackageInput(trackingNumber string) PackageCreateInput {
	return PackageCreateInput{
		TrackingNumber:        trackingNumber,
		Description:           p.Description,
		UserEmail:             p.UserEmail,
		SenderName:            p.SenderName,
		SenderEmail:           p.SenderEmail,
		SenderPhone:           p.SenderPhone,
		SenderAddress:         p.SenderAddress,
		RecipientName:         p.RecipientName,
		RecipientEmail:        p.RecipientEmail,
		RecipientPhone:        p.RecipientPhone,
		RecipientAddress:      p.RecipientAddress,
		Origin:                p.OriginCity,
		Destination:           p.DestinationCity,
		Weight:                p.Weight,
		Cost:                  p.Cost,
		Priority:              DefaultPackagePriority,
		Status:                PackageStatusInProcess,
		EstimatedDeliveryDate: p.EstimatedDeliveryDate,
	}
}
