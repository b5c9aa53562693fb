package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
)

const internalErrorMessage = "Error interno del servidor"

var notFoundMessages = map[string]string{
	"package":         "Paquete no encontrado",
	"tracking event":  "Evento no encontrado",
	"alert":           "Alerta no encontrada",
	"preregistration": "Pre-registro no encontrado.",
	"return request":  "Solicitud no encontrada.",
	"claim":           "Reclamo no encontrado",
	"user":            "Usuario no encontrado",
}

// errText overrides the default client messages for one route.
type errText struct {
	NotFound  map[string]string
	Duplicate string
	Conflict  string
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps a service error onto a status code and a client-safe message.
func fail(w http.ResponseWriter, r *http.Request, err error, t errText) {
	var (
		verr *models.ValidationError
		nerr *models.NotFoundError
		terr *models.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &nerr):
		msg := t.NotFound[nerr.Entity]
		if msg == "" {
			msg = notFoundMessages[nerr.Entity]
		}
		if msg == "" {
			msg = "Recurso no encontrado"
		}
		writeError(w, http.StatusNotFound, msg)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Recurso no encontrado")
	case errors.Is(err, models.ErrDuplicate):
		msg := t.Duplicate
		if msg == "" {
			msg = "El registro ya existe"
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.As(err, &terr):
		msg := terr.Reason
		if msg == "" {
			msg = t.Conflict
		}
		if msg == "" {
			msg = "La operación no es válida en el estado actual"
		}
		writeError(w, http.StatusConflict, msg)
	case errors.Is(err, models.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
	case errors.Is(err, models.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Demasiados intentos. Intenta de nuevo más tarde.")
	case errors.Is(err, models.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "Token inválido o expirado")
	case errors.Is(err, models.ErrMailDelivery):
		slog.Error("mail delivery failed", "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "No se pudo enviar el email de recuperación.")
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

// decode reads a JSON body into dst and runs the struct validation tags.
// It writes the 400 itself and reports false on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, validationMessage(verrs[0]))
			return false
		}
		writeError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido")
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " es requerido"
	case "email":
		return "Formato de email inválido"
	case "min":
		return fmt.Sprintf("%s debe tener al menos %s caracteres", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s debe ser mayor o igual a %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s debe ser uno de: %s", field, fe.Param())
	default:
		return field + " es inválido"
	}
}

// idParam parses the {id} URL segment, answering 400 when it is not a number.
func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "ID inválido")
		return 0, false
	}
	return id, true
}
