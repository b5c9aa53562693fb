package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/services/users"
)

func (a *API) userRoutes(r chi.Router) {
	r.Get("/", a.listUsers)
	r.Post("/", a.createUser)
	r.Post("/login", a.login)
	r.Get("/me", a.me)
	r.Post("/forgot-password", a.forgotPassword)
	r.Post("/reset-password", a.resetPassword)
	r.Post("/verify-reset-token", a.verifyResetToken)
	r.Get("/{id}", a.getUser)
}

type userCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type resetTokenUser struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type verifyResetTokenResponse struct {
	Valid bool           `json:"valid"`
	User  resetTokenUser `json:"user"`
}

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.Users.List(r.Context())
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	u, err := a.svc.Users.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.svc.Users.Register(r.Context(), users.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		fail(w, r, err, errText{Duplicate: "El email ya está registrado"})
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Message: "Usuario creado exitosamente",
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:      res.User.ID,
		Name:    res.User.Name,
		Email:   res.User.Email,
		Role:    res.User.Role,
		Token:   res.Token,
		Message: "Login exitoso",
	})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "Token requerido")
		return
	}
	u, err := a.svc.Users.Me(r.Context(), strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "Token inválido o expirado")
			return
		}
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Users.ForgotPassword(r.Context(), req.Email); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, successBody{
		Success: true,
		Message: "Si tu email está registrado, recibirás un correo de recuperación.",
	})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Users.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true, Message: "Contraseña actualizada exitosamente"})
}

func (a *API) verifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.svc.Users.VerifyResetToken(r.Context(), req.Token)
	if err != nil {
		fail(w, r, err, errText{})
		return
	}
	writeJSON(w, http.StatusOK, verifyResetTokenResponse{
		Valid: true,
		User:  resetTokenUser{ID: u.ID, Name: u.Name, Email: u.Email},
	})
}
