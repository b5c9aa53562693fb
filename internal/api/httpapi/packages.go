package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/BoaTracking/internal/models"
)

var packageCreateText = errText{Duplicate: "El número de tracking ya existe"}

func (a *API) packageRoutes(r chi.Router) {
	r.Get("/", a.listPackages)
	r.Post("/", a.createPackage)
	r.Get("/user/{email}", a.listPackagesByEmail)
	r.Get("/tracking/{trackingNumber}", a.getPackage)
	r.Get("/check-return/{trackingNumber}", a.checkReturn)
	r.Post("/events", a.addEvent)
	r.Put("/events/{id}", a.updateEvent)
	r.Delete("/events/{id}", a.deleteEvent)
	r.Put("/{id}/status", a.updatePackageStatus)
	r.Get("/{trackingNumber}", a.getPackage)
}

type packageCreateRequest struct {
	TrackingNumber        string  `json:"tracking_number"`
	Description           string  `json:"description"`
	UserEmail             string  `json:"user_email" validate:"omitempty,email"`
	SenderName            string  `json:"sender_name"`
	SenderEmail           string  `json:"sender_email" validate:"omitempty,email"`
	SenderPhone           string  `json:"sender_phone"`
	SenderAddress         string  `json:"sender_address"`
	RecipientName         string  `json:"recipient_name"`
	RecipientEmail        string  `json:"recipient_email" validate:"omitempty,email"`
	RecipientPhone        string  `json:"recipient_phone"`
	RecipientAddress      string  `json:"recipient_address"`
	Origin                string  `json:"origin"`
	Destination           string  `json:"destination"`
	Weight                float64 `json:"weight" validate:"gte=0"`
	Cost                  float64 `json:"cost" validate:"gte=0"`
	Priority              string  `json:"priority"`
	Status                string  `json:"status"`
	EstimatedDeliveryDate string  `json:"estimated_delivery_date"`
}

type packageCreateResponse struct {
	ID             uint64 `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Message        string `json:"message"`
}

type statusRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

type eventCreateRequest struct {
	PackageTracking string `json:"package_tracking"`
	EventType       string `json:"event_type"`
	Location        string `json:"location"`
	Operator        string `json:"operator"`
	Notes           string `json:"notes"`
	// Timestamp is when the event happened; empty means now.
	Timestamp *time.Time `json:"timestamp"`
}

type eventCreateResponse struct {
	Message string `json:"message"`
	EventID uint64 `json:"eventId"`
}

type eventUpdateRequest struct {
	EventType   string `json:"event_type"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
	Operator    string `json:"operator"`
	Coordinates string `json:"coordinates"`
}

func (a *API) listPackages(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Packages.List(r.Context())
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listPackagesByEmail(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Packages.ListByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getPackage(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Packages.Get(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createPackage(w http.ResponseWriter, r *http.Request) {
	var req packageCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.svc.Packages.Create(r.Context(), models.PackageCreateInput{
		TrackingNumber:        req.TrackingNumber,
		Description:           req.Description,
		UserEmail:             req.UserEmail,
		SenderName:            req.SenderName,
		SenderEmail:           req.SenderEmail,
		SenderPhone:           req.SenderPhone,
		SenderAddress:         req.SenderAddress,
		RecipientName:         req.RecipientName,
		RecipientEmail:        req.RecipientEmail,
		RecipientPhone:        req.RecipientPhone,
		RecipientAddress:      req.RecipientAddress,
		Origin:                req.Origin,
		Destination:           req.Destination,
		Weight:                req.Weight,
		Cost:                  req.Cost,
		Priority:              req.Priority,
		Status:                models.PackageStatus(req.Status),
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		fail(w, r, err, packageCreateText)
		return
	}
	writeJSON(w, http.StatusCreated, packageCreateResponse{
		ID:             p.ID,
		TrackingNumber: p.TrackingNumber,
		Message:        "Paquete creado exitosamente",
	})
}

func (a *API) updatePackageStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Packages.UpdateStatus(r.Context(), id, req.Status, req.Location); err != nil {
		fail(w, r, err, errText{Conflict: "El paquete ya fue entregado y no admite cambios de estado"})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Estado actualizado exitosamente"})
}

func (a *API) checkReturn(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Packages.CheckReturn(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) addEvent(w http.ResponseWriter, r *http.Request) {
	var req eventCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	in := models.TrackingEventInput{
		TrackingNumber: req.PackageTracking,
		EventType:      models.PackageStatus(req.EventType),
		Location:       req.Location,
		Operator:       req.Operator,
		Notes:          req.Notes,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}
	ev, err := a.svc.Packages.AddEvent(r.Context(), in)
	if err != nil {
		fail(w, r, err, errText{Conflict: "El paquete ya fue entregado y no admite nuevos eventos"})
		return
	}
	writeJSON(w, http.StatusCreated, eventCreateResponse{
		Message: "Evento registrado y paquete actualizado con éxito.",
		EventID: ev.ID,
	})
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req eventUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}
	err := a.svc.Packages.UpdateEvent(r.Context(), models.TrackingEventUpdate{
		ID:          id,
		EventType:   req.EventType,
		Location:    req.Location,
		Operator:    req.Operator,
		Notes:       req.Notes,
		Coordinates: req.Coordinates,
	})
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Evento actualizado exitosamente"})
}

func (a *API) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.svc.Packages.DeleteEvent(r.Context(), id); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Evento eliminado exitosamente"})
}
