package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/BearBump/BoaTracking/internal/clock"
	"github.com/BearBump/BoaTracking/internal/integrations/mailer"
	"github.com/BearBump/BoaTracking/internal/models"
	"github.com/BearBump/BoaTracking/internal/services/alerts"
	"github.com/BearBump/BoaTracking/internal/services/claims"
	"github.com/BearBump/BoaTracking/internal/services/packages"
	"github.com/BearBump/BoaTracking/internal/services/preregistrations"
	"github.com/BearBump/BoaTracking/internal/services/returns"
	"github.com/BearBump/BoaTracking/internal/services/users"
	"github.com/BearBump/BoaTracking/internal/storage/sqlitestore"
)

type APISuite struct {
	suite.Suite
	st    *sqlitestore.Storage
	clock *clock.Fixed
	h     http.Handler
}

func (s *APISuite) SetupTest() {
	st, err := sqlitestore.New(filepath.Join(s.T().TempDir(), "boa.db"))
	s.Require().NoError(err)
	s.st = st
	s.clock = clock.NewFixed(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC))

	pkgs := packages.New(st, nil, 0, nil, s.clock)
	svc := Services{
		Packages:         pkgs,
		Alerts:           alerts.New(st, s.clock, alerts.DefaultReactivateCooldown),
		Preregistrations: preregistrations.New(st, nil, s.clock),
		Returns:          returns.New(st, nil, pkgs, s.clock),
		Claims:           claims.New(st, s.clock),
		Users: users.New(st, nil, nil, s.clock, users.Settings{
			JWTSecret: []byte("test"),
			TokenTTL:  time.Hour,
		}).WithBcryptCost(bcrypt.MinCost),
	}
	s.h = New(svc, st).Router("")
}

func (s *APISuite) TearDownTest() {
	s.st.Close()
}

func (s *APISuite) do(method, path string, body any, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *APISuite) createPackage(tn, status string) uint64 {
	rec, out := s.do(http.MethodPost, "/api/packages", map[string]any{
		"tracking_number": tn,
		"sender_name":     "Ana",
		"sender_email":    "ana@boa.bo",
		"weight":          2.5,
		"cost":            25,
		"status":          status,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return uint64(out["id"].(float64))
}

func (s *APISuite) TestHealth() {
	rec, _ := s.do(http.MethodGet, "/healthz", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, "/readyz", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *APISuite) TestPackages() {
	id := s.createPackage("BOA-2025-1001", "")

	rec, out := s.do(http.MethodPost, "/api/packages", map[string]any{"tracking_number": "BOA-2025-1001"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("El número de tracking ya existe", out["error"])

	rec, out = s.do(http.MethodPost, "/api/packages", map[string]any{"description": "sin tracking"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Número de tracking es requerido", out["error"])

	rec, out = s.do(http.MethodGet, "/api/packages/BOA-2025-1001", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal("pending", out["status"])
	s.Require().Equal("normal", out["priority"])

	rec, out = s.do(http.MethodGet, "/api/packages/tracking/BOA-NOPE", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Require().Equal("Paquete no encontrado", out["error"])

	rec, out = s.do(http.MethodPost, "/api/packages/events", map[string]any{
		"package_tracking": "BOA-2025-1001", "event_type": "en_transito", "location": "Cochabamba",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().NotZero(out["eventId"])

	rec, out = s.do(http.MethodGet, "/api/packages/tracking/BOA-2025-1001", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal("en_transito", out["status"])
	s.Require().Equal("Cochabamba", out["location"])
	s.Require().Len(out["events"], 1)

	rec, _ = s.do(http.MethodPut, "/api/packages/"+itoa(id)+"/status", map[string]any{"status": "pendiente"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec, out = s.do(http.MethodGet, "/api/packages/BOA-2025-1001", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal("pendiente", out["status"])

	rec, _ = s.do(http.MethodPut, "/api/packages/"+itoa(id)+"/status", map[string]any{"status": "entregado", "location": "La Paz"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPut, "/api/packages/"+itoa(id)+"/status", map[string]any{"status": "en_transito"})
	s.Require().Equal(http.StatusConflict, rec.Code)

	rec, out = s.do(http.MethodPut, "/api/packages/"+itoa(id)+"/status", map[string]any{"status": "perdido"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Contains(out["error"], "perdido")

	rec, _ = s.do(http.MethodDelete, "/api/packages/events/9999", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)

	rec, out = s.do(http.MethodGet, "/api/packages/check-return/BOA-2025-1001", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal(false, out["elegible"])
}

func (s *APISuite) TestRequestValidation() {
	rec, out := s.do(http.MethodPost, "/api/packages", "{broken")
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Cuerpo de la solicitud inválido", out["error"])

	rec, out = s.do(http.MethodPost, "/api/packages", map[string]any{"tracking_number": "X", "sender_email": "no-es-email"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Formato de email inválido", out["error"])

	rec, out = s.do(http.MethodPost, "/api/packages", map[string]any{"tracking_number": "X", "weight": -1})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("weight debe ser mayor o igual a 0", out["error"])

	rec, out = s.do(http.MethodDelete, "/api/alerts/abc", nil)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("ID inválido", out["error"])
}

func (s *APISuite) TestPreregistrationApproval() {
	rec, out := s.do(http.MethodPost, "/api/preregistrations", map[string]any{
		"user_email": "ana@boa.bo", "description": "Libros", "sender_name": "Ana",
		"recipient_name": "Luis", "weight": 4,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	id := itoa(uint64(out["preregistrationId"].(float64)))

	rec, out = s.do(http.MethodPost, "/api/preregistrations/"+id+"/approve", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	tn := out["trackingNumber"].(string)
	s.Require().True(strings.HasPrefix(tn, "BOA-2025-"))

	rec, out = s.do(http.MethodGet, "/api/packages/"+tn, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal("En proceso", out["status"])

	rec, out = s.do(http.MethodPost, "/api/preregistrations/"+id+"/approve", nil)
	s.Require().Equal(http.StatusConflict, rec.Code)
	s.Require().Equal("El pre-registro ya fue aprobado", out["error"])

	rec, _ = s.do(http.MethodPut, "/api/preregistrations/"+id, map[string]any{
		"sender_name": "Ana", "recipient_name": "Luis", "weight": 7,
	})
	s.Require().Equal(http.StatusConflict, rec.Code)

	rec, out = s.do(http.MethodPost, "/api/preregistrations/999/approve", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Require().Equal("Pre-registro no encontrado.", out["error"])
}

func (s *APISuite) TestReturnWorkflow() {
	s.createPackage("BOA-2025-2001", "received")

	rec, out := s.do(http.MethodPost, "/api/returns/request", map[string]any{"user_email": "ana@boa.bo"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Todos los campos son requeridos.", out["error"])

	body := map[string]any{
		"user_email": "ana@boa.bo", "tracking_number": "BOA-2025-2001",
		"first_name": "Ana", "last_name": "Rojas", "reason": "Dañado",
	}
	rec, out = s.do(http.MethodPost, "/api/returns/request", body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	id := itoa(uint64(out["requestId"].(float64)))

	rec, out = s.do(http.MethodPut, "/api/returns/requests/"+id+"/reject", map[string]any{"comment": ""})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("El motivo del rechazo es requerido.", out["error"])

	rec, out = s.do(http.MethodPut, "/api/returns/requests/"+id+"/approve", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().Equal("RTN-1748872800000", out["return_tracking_number"])

	rec, _ = s.do(http.MethodGet, "/api/packages/BOA-2025-2001", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodPut, "/api/returns/requests/"+id+"/approve", nil)
	s.Require().Equal(http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/returns/user/ana@boa.bo", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list, 1)
	s.Require().Equal("BOA-2025-2001", list[0]["original_tracking_number"])
	s.Require().Equal("approved", list[0]["status"])

	rec, out = s.do(http.MethodPut, "/api/returns/requests/77/approve", nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Require().Equal("Solicitud no encontrada.", out["error"])
}

func (s *APISuite) TestPackages_EventKeepsClientTimestamp() {
	s.createPackage("BOA-2025-1002", "")

	rec, _ := s.do(http.MethodPost, "/api/packages/events", map[string]any{
		"package_tracking": "BOA-2025-1002", "event_type": "en_transito",
		"location": "Oruro", "timestamp": "2025-06-01T08:30:00Z",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec, out := s.do(http.MethodGet, "/api/packages/tracking/BOA-2025-1002", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	events := out["events"].([]any)
	s.Require().Len(events, 1)
	ev := events[0].(map[string]any)
	s.Require().Equal("Oruro", ev["location"])
	s.requireTime(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC), ev["timestamp"])
	s.requireTime(s.clock.Now(), out["updated_at"])
}

func (s *APISuite) requireTime(want time.Time, got any) {
	str, ok := got.(string)
	s.Require().True(ok, "time value %v", got)
	ts, err := time.Parse(time.RFC3339Nano, str)
	s.Require().NoError(err)
	s.Require().True(want.Equal(ts), "want %s, got %s", want, ts)
}

func (s *APISuite) list(path string) []map[string]any {
	rec, _ := s.do(http.MethodGet, path, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var list []map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	return list
}

func (s *APISuite) createDescribedPackage(tn, description string) {
	rec, _ := s.do(http.MethodPost, "/api/packages", map[string]any{
		"tracking_number": tn, "description": description, "sender_name": "Ana",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *APISuite) TestAlerts() {
	s.createDescribedPackage("BOA-1", "Libros")

	rec, out := s.do(http.MethodPost, "/api/alerts", map[string]any{"user_email": "ana@boa.bo"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Email y tipo de alerta son requeridos", out["error"])

	rec, out = s.do(http.MethodPost, "/api/alerts", map[string]any{
		"user_email": "ana@boa.bo", "package_tracking": "BOA-1", "alert_type": "delivery", "email_enabled": true,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
	alertID := out["id"].(float64)
	id := itoa(uint64(alertID))

	all := s.list("/api/alerts")
	s.Require().Len(all, 1)
	s.Require().Equal(alertID, all[0]["id"])
	s.Require().Equal("ana@boa.bo", all[0]["user_email"])
	s.Require().Equal("BOA-1", all[0]["package_tracking"])
	s.Require().Equal("delivery", all[0]["alert_type"])
	s.Require().Equal("active", all[0]["status"])
	s.Require().Equal(true, all[0]["email_enabled"])
	s.Require().Equal(false, all[0]["sms_enabled"])
	s.Require().Equal("Libros", all[0]["package_description"])
	s.requireTime(s.clock.Now(), all[0]["created_at"])
	s.Require().NotContains(all[0], "solved_at")

	s.clock.Advance(time.Hour)
	rec, _ = s.do(http.MethodPut, "/api/alerts/"+id+"/solve", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec, out = s.do(http.MethodPut, "/api/alerts/"+id+"/solve", nil)
	s.Require().Equal(http.StatusConflict, rec.Code)
	s.Require().Equal("La alerta ya está solucionada.", out["error"])

	rec, out = s.do(http.MethodGet, "/api/alerts/can-reactivate/BOA-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal(true, out["canReactivate"])

	rec, _ = s.do(http.MethodPut, "/api/alerts/"+id+"/reactivate", nil)
	s.Require().Equal(http.StatusConflict, rec.Code)

	solved := s.list("/api/alerts/type/delivery?status=solved")
	s.Require().Len(solved, 1)
	s.Require().Equal(alertID, solved[0]["id"])
	s.Require().Equal("solved", solved[0]["status"])
	s.Require().Equal("ana@boa.bo", solved[0]["user_email"])
	s.Require().Equal("Libros", solved[0]["package_description"])
	s.requireTime(s.clock.Now(), solved[0]["solved_at"])

	s.Require().Empty(s.list("/api/alerts/type/delivery?status=active"))
	s.Require().Empty(s.list("/api/alerts/type/" + models.AlertTypeInternalMonitoring))

	rec, _ = s.do(http.MethodDelete, "/api/alerts/"+id, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec, out = s.do(http.MethodDelete, "/api/alerts/"+id, nil)
	s.Require().Equal(http.StatusNotFound, rec.Code)
	s.Require().Equal("Alerta no encontrada", out["error"])
	s.Require().Empty(s.list("/api/alerts"))
}

func (s *APISuite) TestClaims() {
	s.createDescribedPackage("BOA-1", "Libros")

	rec, out := s.do(http.MethodPost, "/api/claims", map[string]any{
		"tracking_number": "BOA-1", "name": "Ana", "email": "ana@boa.bo",
		"claim_type": "extravio", "description": "Caja rota",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	claimID := out["claimId"].(float64)
	id := itoa(uint64(claimID))

	byUser := s.list("/api/claims/user/ana@boa.bo")
	s.Require().Len(byUser, 1)
	s.Require().Equal(claimID, byUser[0]["id"])
	s.Require().Equal("BOA-1", byUser[0]["tracking_number"])
	s.Require().Equal("Ana", byUser[0]["name"])
	s.Require().Equal("ana@boa.bo", byUser[0]["email"])
	s.Require().Equal("extravio", byUser[0]["claim_type"])
	s.Require().Equal("Caja rota", byUser[0]["description"])
	s.Require().Equal(models.ClaimStatusPending, byUser[0]["status"])
	s.Require().Nil(byUser[0]["response"])
	s.Require().Equal("Libros", byUser[0]["package_description"])
	s.requireTime(s.clock.Now(), byUser[0]["created_at"])

	s.clock.Advance(time.Hour)
	rec, _ = s.do(http.MethodPut, "/api/claims/"+id+"/respond", map[string]any{"response": "Reembolso", "admin_name": "Luis"})
	s.Require().Equal(http.StatusOK, rec.Code)

	byType := s.list("/api/claims/type/extravio")
	s.Require().Len(byType, 1)
	s.Require().Equal(claimID, byType[0]["id"])
	s.Require().Equal("Ana", byType[0]["name"])
	s.Require().Equal("Caja rota", byType[0]["description"])
	s.Require().Equal(models.ClaimStatusResponded, byType[0]["status"])
	s.Require().Equal("Reembolso", byType[0]["response"])
	s.Require().Equal("Luis", byType[0]["response_by"])
	s.requireTime(s.clock.Now(), byType[0]["responded_at"])

	byStatus := s.list("/api/claims/status/" + models.ClaimStatusResponded)
	s.Require().Len(byStatus, 1)
	s.Require().Equal(claimID, byStatus[0]["id"])
	s.Require().Equal("Reembolso", byStatus[0]["response"])

	s.Require().Empty(s.list("/api/claims/user/otro@boa.bo"))
	s.Require().Empty(s.list("/api/claims/type/retraso"))

	rec, out = s.do(http.MethodPut, "/api/claims/"+id+"/status", map[string]any{})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Estado es requerido", out["error"])
}

func (s *APISuite) TestUsers() {
	rec, out := s.do(http.MethodPost, "/api/users", map[string]any{"name": "Ana", "email": "ana@boa.bo", "password": "secreto1"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().Equal("public", out["role"])

	rec, out = s.do(http.MethodPost, "/api/users", map[string]any{"name": "Ana", "email": "ana@boa.bo", "password": "x"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("El email ya está registrado", out["error"])

	rec, out = s.do(http.MethodPost, "/api/users/login", map[string]any{"email": "ana@boa.bo", "password": "mal"})
	s.Require().Equal(http.StatusUnauthorized, rec.Code)
	s.Require().Equal("Credenciales inválidas", out["error"])

	rec, out = s.do(http.MethodPost, "/api/users/login", map[string]any{"email": "ana@boa.bo", "password": "secreto1"})
	s.Require().Equal(http.StatusOK, rec.Code)
	token := out["token"].(string)

	rec, out = s.do(http.MethodGet, "/api/users/me", nil, "Authorization", "Bearer "+token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal("ana@boa.bo", out["email"])
	s.Require().NotContains(rec.Body.String(), "password")

	rec, _ = s.do(http.MethodGet, "/api/users/me", nil, "Authorization", "Bearer nope")
	s.Require().Equal(http.StatusUnauthorized, rec.Code)

	rec, out = s.do(http.MethodPost, "/api/users/forgot-password", map[string]any{"email": "nadie@boa.bo"})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal(true, out["success"])

	rec, out = s.do(http.MethodPost, "/api/users/verify-reset-token", map[string]any{"token": "nope"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)
	s.Require().Equal("Token inválido o expirado", out["error"])
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return context.DeadlineExceeded }

func TestReadyz_DBDown(t *testing.T) {
	h := New(Services{}, downDB{}).Router("")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFail_InternalErrorsAreHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	fail(rec, httptest.NewRequest(http.MethodGet, "/x", nil), context.Canceled, errText{})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"`+internalErrorMessage+`"}`, rec.Body.String())
}

type downMailer struct{}

func (downMailer) Send(context.Context, mailer.Message) error { return context.DeadlineExceeded }

func TestForgotPassword_MailFailure(t *testing.T) {
	st, err := sqlitestore.New(filepath.Join(t.TempDir(), "boa.db"))
	require.NoError(t, err)
	defer st.Close()

	clk := clock.NewFixed(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC))
	usr := users.New(st, nil, nil, clk, users.Settings{JWTSecret: []byte("test")}).
		WithBcryptCost(bcrypt.MinCost).
		WithMailer(downMailer{}, "https://boa.bo")
	_, err = usr.Register(context.Background(), users.RegisterInput{Name: "Ana", Email: "ana@boa.bo", Password: "secreto1"})
	require.NoError(t, err)

	h := New(Services{Users: usr}, st).Router("")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/forgot-password", strings.NewReader(`{"email":"ana@boa.bo"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"No se pudo enviar el email de recuperación."}`, rec.Body.String())
}

func itoa(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
