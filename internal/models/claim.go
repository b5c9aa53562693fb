package models

import "time"

const (
	ClaimStatusPending   = "Pendiente"
	ClaimStatusResponded = "Respondido"
)

type Claim struct {
	ID             uint64     `json:"id"`
	TrackingNumber string     `json:"tracking_number"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	ClaimType      string     `json:"claim_type"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Response       *string    `json:"response"`
	ResponseBy     *string    `json:"response_by"`
	RespondedAt    *time.Time `json:"responded_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	PackageDescription *string `json:"package_description"`
}

type ClaimInput struct {
	TrackingNumber string
	Name           string
	Email          string
	ClaimType      string
	Description    string
}

type ClaimFilter struct {
	Email     string
	ClaimType string
	Status    string
}
