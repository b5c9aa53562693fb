package sqlitestore

import (
	"time"

	"github.com/BearBump/BoaTracking/internal/models"
)

// Row types map 1:1 onto the tables. Timestamps are written by the store,
// never by gorm's auto time tracking.

type packageRow struct {
	ID                    uint64 `gorm:"primaryKey"`
	TrackingNumber        string `gorm:"uniqueIndex;not null"`
	Description           string `gorm:"not null;default:''"`
	Status                string `gorm:"not null;default:'pending'"`
	Location              string `gorm:"not null;default:''"`
	UserEmail             string `gorm:"not null;default:''"`
	SenderName            string `gorm:"not null;default:''"`
	SenderEmail           string `gorm:"index;not null;default:''"`
	SenderPhone           string `gorm:"not null;default:''"`
	SenderAddress         string `gorm:"not null;default:''"`
	RecipientName         string `gorm:"not null;default:''"`
	RecipientEmail        string `gorm:"index;not null;default:''"`
	RecipientPhone        string `gorm:"not null;default:''"`
	RecipientAddress      string `gorm:"not null;default:''"`
	Weight                float64
	Cost                  float64
	Priority              string    `gorm:"not null;default:'normal'"`
	Origin                string    `gorm:"not null;default:''"`
	Destination           string    `gorm:"not null;default:''"`
	EstimatedDeliveryDate string    `gorm:"not null;default:''"`
	CreatedAt             time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (packageRow) TableName() string { return "packages" }

func (r *packageRow) toModel() *models.Package {
	return &models.Package{
		ID:                    r.ID,
		TrackingNumber:        r.TrackingNumber,
		Description:           r.Description,
		Status:                models.PackageStatus(r.Status),
		Location:              r.Location,
		UserEmail:             r.UserEmail,
		SenderName:            r.SenderName,
		SenderEmail:           r.SenderEmail,
		SenderPhone:           r.SenderPhone,
		SenderAddress:         r.SenderAddress,
		RecipientName:         r.RecipientName,
		RecipientEmail:        r.RecipientEmail,
		RecipientPhone:        r.RecipientPhone,
		RecipientAddress:      r.RecipientAddress,
		Weight:                r.Weight,
		Cost:                  r.Cost,
		Priority:              r.Priority,
		Origin:                r.Origin,
		Destination:           r.Destination,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

func newPackageRow(in models.PackageCreateInput, at time.Time) *packageRow {
	return &packageRow{
		TrackingNumber:        in.TrackingNumber,
		Description:           in.Description,
		Status:                string(in.Status),
		UserEmail:             in.UserEmail,
		SenderName:            in.SenderName,
		SenderEmail:           in.SenderEmail,
		SenderPhone:           in.SenderPhone,
		SenderAddress:         in.SenderAddress,
		RecipientName:         in.RecipientName,
		RecipientEmail:        in.RecipientEmail,
		RecipientPhone:        in.RecipientPhone,
		RecipientAddress:      in.RecipientAddress,
		Weight:                in.Weight,
		Cost:                  in.Cost,
		Priority:              in.Priority,
		Origin:                in.Origin,
		Destination:           in.Destination,
		EstimatedDeliveryDate: in.EstimatedDeliveryDate,
		CreatedAt:             at,
		UpdatedAt:             at,
	}
}

type trackingEventRow struct {
	ID          uint64    `gorm:"primaryKey"`
	PackageID   uint64    `gorm:"index:idx_tracking_events_package_ts,priority:1;not null"`
	EventType   string    `gorm:"not null"`
	Location    string    `gorm:"not null;default:''"`
	Operator    string    `gorm:"not null;default:''"`
	Notes       string    `gorm:"not null;default:''"`
	Coordinates string    `gorm:"not null;default:''"`
	Timestamp   time.Time `gorm:"index:idx_tracking_events_package_ts,priority:2;not null"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (trackingEventRow) TableName() string { return "tracking_events" }

func (r *trackingEventRow) toModel() *models.TrackingEvent {
	return &models.TrackingEvent{
		ID:          r.ID,
		PackageID:   r.PackageID,
		EventType:   r.EventType,
		Location:    r.Location,
		Operator:    r.Operator,
		Notes:       r.Notes,
		Coordinates: r.Coordinates,
		Timestamp:   r.Timestamp.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type alertRow struct {
	ID              uint64    `gorm:"primaryKey"`
	UserEmail       string    `gorm:"index;not null"`
	PackageTracking string    `gorm:"index:idx_alerts_tracking_type,priority:1;not null;default:''"`
	AlertType       string    `gorm:"index:idx_alerts_tracking_type,priority:2;not null"`
	Title           string    `gorm:"not null;default:''"`
	Description     string    `gorm:"not null;default:''"`
	Severity        string    `gorm:"not null;default:''"`
	Status          string    `gorm:"not null;default:'active'"`
	SMSEnabled      bool      `gorm:"column:sms_enabled;not null;default:false"`
	EmailEnabled    bool      `gorm:"not null;default:false"`
	PushEnabled     bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false;not null"`
	SolvedAt        *time.Time
}

func (alertRow) TableName() string { return "alerts" }

func (r *alertRow) toModel() *models.Alert {
	a := &models.Alert{
		ID:              r.ID,
		UserEmail:       r.UserEmail,
		PackageTracking: r.PackageTracking,
		AlertType:       r.AlertType,
		Title:           r.Title,
		Description:     r.Description,
		Severity:        models.Severity(r.Severity),
		Status:          models.AlertStatus(r.Status),
		SMSEnabled:      r.SMSEnabled,
		EmailEnabled:    r.EmailEnabled,
		PushEnabled:     r.PushEnabled,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if r.SolvedAt != nil {
		t := r.SolvedAt.UTC()
		a.SolvedAt = &t
	}
	return a
}

type preregistrationRow struct {
	ID                            uint64 `gorm:"primaryKey"`
	UserEmail                     string `gorm:"index;not null"`
	PreregistrationTrackingNumber string `gorm:"not null;default:''"`
	SenderName                    string `gorm:"not null;default:''"`
	SenderPhone                   string `gorm:"not null;default:''"`
	SenderAddress                 string `gorm:"not null;default:''"`
	SenderEmail                   string `gorm:"not null;default:''"`
	RecipientName                 string `gorm:"not null;default:''"`
	RecipientPhone                string `gorm:"not null;default:''"`
	RecipientAddress              string `gorm:"not null;default:''"`
	RecipientEmail                string `gorm:"not null;default:''"`
	Weight                        float64
	CargoType                     string `gorm:"not null;default:''"`
	OriginCity                    string `gorm:"not null;default:''"`
	DestinationCity               string `gorm:"not null;default:''"`
	Description                   string `gorm:"not null;default:''"`
	Priority                      string `gorm:"not null;default:''"`
	ShippingType                  string `gorm:"not null;default:''"`
	Cost                          float64
	EstimatedDeliveryDate         string `gorm:"not null;default:''"`
	Status                        string `gorm:"not null;default:'Pendiente'"`
	ApprovedAt                    *time.Time
	ApprovedTrackingNumber        *string
	CreatedAt                     time.Time `gorm:"autoCreateTime:false;not null"`
}

func (preregistrationRow) TableName() string { return "preregistrations" }

func (r *preregistrationRow) toModel() *models.Preregistration {
	p := &models.Preregistration{
		ID:                     r.ID,
		UserEmail:              r.UserEmail,
		TrackingNumber:         r.PreregistrationTrackingNumber,
		SenderName:             r.SenderName,
		SenderPhone:            r.SenderPhone,
		SenderAddress:          r.SenderAddress,
		SenderEmail:            r.SenderEmail,
		RecipientName:          r.RecipientName,
		RecipientPhone:         r.RecipientPhone,
		RecipientAddress:       r.RecipientAddress,
		RecipientEmail:         r.RecipientEmail,
		Weight:                 r.Weight,
		CargoType:              r.CargoType,
		OriginCity:             r.OriginCity,
		DestinationCity:        r.DestinationCity,
		Description:            r.Description,
		Priority:               r.Priority,
		ShippingType:           r.ShippingType,
		Cost:                   r.Cost,
		EstimatedDeliveryDate:  r.EstimatedDeliveryDate,
		Status:                 models.PreregistrationStatus(r.Status),
		ApprovedTrackingNumber: r.ApprovedTrackingNumber,
		CreatedAt:              r.CreatedAt.UTC(),
	}
	if r.ApprovedAt != nil {
		t := r.ApprovedAt.UTC()
		p.ApprovedAt = &t
	}
	return p
}

type returnRequestRow struct {
	ID                    uint64 `gorm:"primaryKey"`
	UserEmail             string `gorm:"index;not null"`
	PackageTrackingNumber string `gorm:"not null"`
	FirstName             string `gorm:"not null"`
	LastName              string `gorm:"not null"`
	Reason                string `gorm:"not null"`
	Status                string `gorm:"index;not null;default:'pending'"`
	RejectionComment      *string
	ReturnTrackingNumber  *string
	CreatedAt             time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (returnRequestRow) TableName() string { return "return_requests" }

func (r *returnRequestRow) toModel() *models.ReturnRequest {
	return &models.ReturnRequest{
		ID:                    r.ID,
		UserEmail:             r.UserEmail,
		PackageTrackingNumber: r.PackageTrackingNumber,
		FirstName:             r.FirstName,
		LastName:              r.LastName,
		Reason:                r.Reason,
		Status:                models.ReturnStatus(r.Status),
		RejectionComment:      r.RejectionComment,
		ReturnTrackingNumber:  r.ReturnTrackingNumber,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

type returnRow struct {
	ID                     uint64 `gorm:"primaryKey"`
	OriginalTrackingNumber string `gorm:"index;not null"`
	ReturnTrackingNumber   string `gorm:"not null"`
	Description            string
	SenderName             string
	RecipientName          string
	Origin                 string
	Destination            string
	Weight                 float64
	Cost                   float64
	CreatedAt              time.Time `gorm:"autoCreateTime:false;not null"`
}

func (returnRow) TableName() string { return "returns" }

func (r *returnRow) toModel() *models.Return {
	return &models.Return{
		ID:                     r.ID,
		OriginalTrackingNumber: r.OriginalTrackingNumber,
		ReturnTrackingNumber:   r.ReturnTrackingNumber,
		Description:            r.Description,
		SenderName:             r.SenderName,
		RecipientName:          r.RecipientName,
		Origin:                 r.Origin,
		Destination:            r.Destination,
		Weight:                 r.Weight,
		Cost:                   r.Cost,
		CreatedAt:              r.CreatedAt.UTC(),
	}
}

type claimRow struct {
	ID             uint64 `gorm:"primaryKey"`
	TrackingNumber string `gorm:"not null;default:''"`
	Name           string `gorm:"not null"`
	Email          string `gorm:"index;not null"`
	ClaimType      string `gorm:"not null"`
	Description    string `gorm:"not null"`
	Status         string `gorm:"not null;default:'Pendiente'"`
	Response       *string
	ResponseBy     *string
	RespondedAt    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (claimRow) TableName() string { return "claims" }

type userRow struct {
	ID               uint64  `gorm:"primaryKey"`
	Name             string  `gorm:"not null"`
	Email            string  `gorm:"uniqueIndex;not null"`
	Password         string  `gorm:"not null"`
	Role             string  `gorm:"not null;default:'public'"`
	ResetToken       *string `gorm:"index"`
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime:false;not null"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toModel() *models.User {
	u := &models.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.Password,
		Role:         r.Role,
		ResetToken:   r.ResetToken,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.ResetTokenExpiry != nil {
		t := r.ResetTokenExpiry.UTC()
		u.ResetTokenExpiry = &t
	}
	return u
}
