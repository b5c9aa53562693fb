package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/services/alerts"
)

func (a *API) alertRoutes(r chi.Router) {
	r.Get("/", a.listAlerts)
	r.Post("/", a.createAlert)
	r.Get("/user/{email}", a.listAlertsByEmail)
	r.Get("/type/{alertType}", a.listAlertsByType)
	r.Get("/can-reactivate/{trackingNumber}", a.canReactivate)
	r.Put("/{id}", a.updateAlertChannels)
	r.Put("/{id}/solve", a.solveAlert)
	r.Put("/{id}/reactivate", a.reactivateAlert)
	r.Delete("/{id}", a.deleteAlert)
}

type alertCreateRequest struct {
	UserEmail       string `json:"user_email"`
	PackageTracking string `json:"package_tracking"`
	AlertType       string `json:"alert_type"`
	SMSEnabled      bool   `json:"sms_enabled"`
	EmailEnabled    bool   `json:"email_enabled"`
	PushEnabled     bool   `json:"push_enabled"`
}

type alertCreateResponse struct {
	ID        uint64 `json:"id"`
	UserEmail string `json:"user_email"`
	AlertType string `json:"alert_type"`
	Message   string `json:"message"`
}

type alertChannelsRequest struct {
	SMSEnabled   bool `json:"sms_enabled"`
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	a.writeAlerts(w, r, models.AlertFilter{})
}

func (a *API) listAlertsByEmail(w http.ResponseWriter, r *http.Request) {
	a.writeAlerts(w, r, models.AlertFilter{UserEmail: chi.URLParam(r, "email")})
}

// listAlertsByType also takes ?status=active|solved; other values are ignored.
func (a *API) listAlertsByType(w http.ResponseWriter, r *http.Request) {
	f := models.AlertFilter{AlertType: chi.URLParam(r, "alertType")}
	if st, ok := models.ParseAlertStatus(r.URL.Query().Get("status")); ok {
		f.Status = st
	}
	a.writeAlerts(w, r, f)
}

func (a *API) writeAlerts(w http.ResponseWriter, r *http.Request, f models.AlertFilter) {
	out, err := a.svc.Alerts.List(r.Context(), f)
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createAlert(w http.ResponseWriter, r *http.Request) {
	var req alertCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	al, err := a.svc.Alerts.Create(r.Context(), alerts.CreateInput{
		UserEmail:       req.UserEmail,
		PackageTracking: req.PackageTracking,
		AlertType:       req.AlertType,
		Channels:        models.AlertChannels{SMS: req.SMSEnabled, Email: req.EmailEnabled, Push: req.PushEnabled},
	})
	if err != nil {
		fail(w, r, err, errText{Duplicate: "Ya existe una alerta activa para este paquete"})
		return
	}
	writeJSON(w, http.StatusCreated, alertCreateResponse{
		ID:        al.ID,
		UserEmail: al.UserEmail,
		AlertType: al.AlertType,
		Message:   "Alerta configurada exitosamente",
	})
}

func (a *API) updateAlertChannels(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req alertChannelsRequest
	if !a.decode(w, r, &req) {
		return
	}
	err := a.svc.Alerts.UpdateChannels(r.Context(), id, models.AlertChannels{
		SMS:   req.SMSEnabled,
		Email: req.EmailEnabled,
		Push:  req.PushEnabled,
	})
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Configuración actualizada exitosamente"})
}

func (a *API) solveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := a.svc.Alerts.Solve(r.Context(), id); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Alerta marcada como solucionada."})
}

func (a *API) reactivateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	al, err := a.svc.Alerts.Reactivate(r.Context(), id)
	if err != nil {
		fail(w, r, err, errText{Duplicate: "Ya existe una alerta activa para este paquete"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string        `json:"message"`
		Alert   *models.Alert `json:"alert"`
	}{"Alerta reactivada.", al})
}

func (a *API) canReactivate(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Alerts.CanReactivate(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.svc.Alerts.Delete(r.Context(), id); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Alerta eliminada exitosamente"})
}
