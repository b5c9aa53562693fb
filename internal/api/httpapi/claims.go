package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (a *API) claimRoutes(r chi.Router) {
	r.Get("/", a.listClaims)
	r.Post("/", a.createClaim)
	r.Get("/user/{email}", a.listClaims)
	r.Get("/type/{type}", a.listClaims)
	r.Get("/status/{status}", a.listClaims)
	r.Put("/{id}/respond", a.respondClaim)
	r.Put("/{id}/status", a.setClaimStatus)
}

type claimRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Name           string `json:"name"`
	Email          string `json:"email" validate:"omitempty,email"`
	ClaimType      string `json:"claim_type"`
	Description    string `json:"description"`
}

type claimResponseRequest struct {
	Response  string `json:"response"`
	AdminName string `json:"admin_name"`
}

// listClaims serves every listing route; the filter comes from whichever
// path parameter the route declares.
func (a *API) listClaims(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Claims.List(r.Context(), models.ClaimFilter{
		Email:     chi.URLParam(r, "email"),
		ClaimType: chi.URLParam(r, "type"),
		Status:    chi.URLParam(r, "status"),
	})
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !a.decode(w, r, &req) {
		return
	}
	id, err := a.svc.Claims.Create(r.Context(), models.ClaimInput{
		TrackingNumber: req.TrackingNumber,
		Name:           req.Name,
		Email:          req.Email,
		ClaimType:      req.ClaimType,
		Description:    req.Description,
	})
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string `json:"message"`
		ClaimID uint64 `json:"claimId"`
	}{"Reclamo creado exitosamente", id})
}

func (a *API) respondClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req claimResponseRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Claims.Respond(r.Context(), id, req.Response, req.AdminName); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Respuesta enviada exitosamente"})
}

func (a *API) setClaimStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Claims.SetStatus(r.Context(), id, req.Status); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Estado actualizado exitosamente"})
}
