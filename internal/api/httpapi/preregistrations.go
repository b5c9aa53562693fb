package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/services/preregistrations"
)

var preregistrationConflict = errText{Conflict: "El pre-registro ya fue aprobado"}

func (a *API) preregistrationRoutes(r chi.Router) {
	r.Post("/", a.createPreregistration)
	r.Get("/all", a.listPreregistrations)
	r.Get("/{userEmail}", a.listPreregistrationsByEmail)
	r.Put("/{id}", a.updatePreregistration)
	r.Delete("/{id}", a.deletePreregistration)
	r.Post("/{id}/approve", a.approvePreregistration)
}

type preregistrationRequest struct {
	UserEmail             string  `json:"user_email" validate:"omitempty,email"`
	TrackingNumber        string  `json:"trackingNumber"`
	SenderName            string  `json:"sender_name"`
	SenderPhone           string  `json:"sender_phone"`
	SenderAddress         string  `json:"sender_address"`
	SenderEmail           string  `json:"sender_email" validate:"omitempty,email"`
	RecipientName         string  `json:"recipient_name"`
	RecipientPhone        string  `json:"recipient_phone"`
	RecipientAddress      string  `json:"recipient_address"`
	RecipientEmail        string  `json:"recipient_email" validate:"omitempty,email"`
	Weight                float64 `json:"weight" validate:"gte=0"`
	CargoType             string  `json:"cargo_type"`
	OriginCity            string  `json:"origin_city"`
	DestinationCity       string  `json:"destination_city"`
	Description           string  `json:"description"`
	Priority              string  `json:"priority"`
	ShippingType          string  `json:"shipping_type"`
	Cost                  float64 `json:"cost" validate:"gte=0"`
	EstimatedDeliveryDate string  `json:"estimated_delivery_date"`
}

type preregistrationUpdateRequest struct {
	SenderName     string   `json:"sender_name"`
	SenderEmail    string   `json:"sender_email" validate:"omitempty,email"`
	RecipientName  string   `json:"recipient_name"`
	RecipientEmail string   `json:"recipient_email" validate:"omitempty,email"`
	Weight         *float64 `json:"weight"`
}

type preregistrationUpdatedFields struct {
	SenderName     string  `json:"sender_name"`
	SenderEmail    string  `json:"sender_email"`
	RecipientName  string  `json:"recipient_name"`
	RecipientEmail string  `json:"recipient_email"`
	Weight         float64 `json:"weight"`
	Cost           float64 `json:"cost"`
}

type preregistrationApprovalResponse struct {
	Message           string `json:"message"`
	TrackingNumber    string `json:"trackingNumber"`
	PackageID         uint64 `json:"packageId"`
	PreregistrationID uint64 `json:"preregistrationId"`
}

func (a *API) createPreregistration(w http.ResponseWriter, r *http.Request) {
	var req preregistrationRequest
	if !a.decode(w, r, &req) {
		return
	}
	id, err := a.svc.Preregistrations.Create(r.Context(), &models.Preregistration{
		UserEmail:             req.UserEmail,
		TrackingNumber:        req.TrackingNumber,
		SenderName:            req.SenderName,
		SenderPhone:           req.SenderPhone,
		SenderAddress:         req.SenderAddress,
		SenderEmail:           req.SenderEmail,
		RecipientName:         req.RecipientName,
		RecipientPhone:        req.RecipientPhone,
		RecipientAddress:      req.RecipientAddress,
		RecipientEmail:        req.RecipientEmail,
		Weight:                req.Weight,
		CargoType:             req.CargoType,
		OriginCity:            req.OriginCity,
		DestinationCity:       req.DestinationCity,
		Description:           req.Description,
		Priority:              req.Priority,
		ShippingType:          req.ShippingType,
		Cost:                  req.Cost,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		fail(w, r, err, errText{Duplicate: "El número de pre-registro ya existe"})
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message           string `json:"message"`
		PreregistrationID uint64 `json:"preregistrationId"`
	}{"Pre-registro creado exitosamente", id})
}

func (a *API) listPreregistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := a.svc.Preregistrations.List(r.Context(), q.Get("search"), q.Get("status"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listPreregistrationsByEmail(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Preregistrations.ListByEmail(r.Context(), chi.URLParam(r, "userEmail"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) updatePreregistration(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req preregistrationUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}
	upd, err := a.svc.Preregistrations.Update(r.Context(), id, preregistrations.UpdateInput{
		SenderName:     req.SenderName,
		SenderEmail:    req.SenderEmail,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		Weight:         req.Weight,
	})
	if err != nil {
		fail(w, r, err, preregistrationConflict)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message       string                       `json:"message"`
		UpdatedFields preregistrationUpdatedFields `json:"updatedFields"`
	}{
		Message: "Pre-registro actualizado exitosamente",
		UpdatedFields: preregistrationUpdatedFields{
			SenderName:     upd.SenderName,
			SenderEmail:    upd.SenderEmail,
			RecipientName:  upd.RecipientName,
			RecipientEmail: upd.RecipientEmail,
			Weight:         upd.Weight,
			Cost:           upd.Cost,
		},
	})
}

func (a *API) deletePreregistration(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.svc.Preregistrations.Delete(r.Context(), id); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Pre-registro eliminado exitosamente"})
}

func (a *API) approvePreregistration(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := a.svc.Preregistrations.Approve(r.Context(), id)
	if err != nil {
		fail(w, r, err, preregistrationConflict)
		return
	}
	writeJSON(w, http.StatusOK, preregistrationApprovalResponse{
		Message:           "Pre-registro aprobado exitosamente",
		TrackingNumber:    res.TrackingNumber,
		PackageID:         res.PackageID,
		PreregistrationID: res.PreregistrationID,
	})
}
