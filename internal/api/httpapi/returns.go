package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/BoaTracking/internal/models"
)

func (a *API) returnRoutes(r chi.Router) {
	r.Post("/request", a.requestReturn)
	r.Get("/requests", a.listReturnRequests)
	r.Get("/user/{email}", a.listReturnRequestsByEmail)
	r.Get("/archive", a.listReturnArchive)
	r.Put("/requests/{id}/approve", a.approveReturn)
	r.Put("/requests/{id}/reject", a.rejectReturn)
}

type returnRequestBody struct {
	UserEmail      string `json:"user_email" validate:"omitempty,email"`
	TrackingNumber string `json:"tracking_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Reason         string `json:"reason"`
}

type rejectBody struct {
	Comment string `json:"comment"`
}

// returnRequestView renames the tracking column the way clients expect it.
type returnRequestView struct {
	*models.ReturnRequest
	OriginalTrackingNumber string `json:"original_tracking_number"`
}

func (a *API) requestReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequestBody
	if !a.decode(w, r, &req) {
		return
	}
	id, err := a.svc.Returns.Request(r.Context(), models.ReturnRequestInput{
		UserEmail:      req.UserEmail,
		TrackingNumber: req.TrackingNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Reason:         req.Reason,
	})
	if err != nil {
		fail(w, r, err, errText{NotFound: map[string]string{"package": "Paquete no encontrado."}})
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message   string `json:"message"`
		RequestID uint64 `json:"requestId"`
	}{"Solicitud de devolución enviada con éxito.", id})
}

func (a *API) listReturnRequests(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Returns.ListRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listReturnRequestsByEmail(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.svc.Returns.ListRequestsByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	out := make([]returnRequestView, 0, len(reqs))
	for _, rr := range reqs {
		out = append(out, returnRequestView{ReturnRequest: rr, OriginalTrackingNumber: rr.PackageTrackingNumber})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) listReturnArchive(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Returns.ListArchive(r.Context())
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) approveReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ret, err := a.svc.Returns.Approve(r.Context(), id)
	if err != nil {
		fail(w, r, err, errText{
			NotFound: map[string]string{"package": "Paquete original no encontrado."},
			Conflict: "La solicitud ya fue procesada.",
		})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message              string `json:"message"`
		ReturnTrackingNumber string `json:"return_tracking_number"`
	}{"Devolución aprobada con éxito.", ret.ReturnTrackingNumber})
}

func (a *API) rejectReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req rejectBody
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Returns.Reject(r.Context(), id, req.Comment); err != nil {
		fail(w, r, err, errText{Conflict: "La solicitud ya fue procesada."})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Solicitud de devolución rechazada."})
}
