package unavailability_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BorcilaVasile/medical-appointment-api/internal/handler/unavailability"
	"github.com/BorcilaVasile/medical-appointment-api/internal/middleware"
	"github.com/BorcilaVasile/medical-appointment-api/internal/model"
	"github.com/BorcilaVasile/medical-appointment-api/internal/repository/memory"
	"github.com/BorcilaVasile/medical-appointment-api/internal/schedule"
	"github.com/BorcilaVasile/medical-appointment-api/internal/service/availability"
	unavailabilityService "github.com/BorcilaVasile/medical-appointment-api/internal/service/unavailability"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/clock"
)

const testSecret = "test-secret"

type env struct {
	engine *gin.Engine
	doctor uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	grid, err := schedule.NewGrid(schedule.DefaultConfig())
	require.NoError(t, err)

	appts := memory.NewAppointmentRepository()
	blocks := memory.NewUnavailabilityRepository()
	resolver := availability.NewService(appts, blocks, grid, clock.NewFake(time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC)), availability.Config{
		BookingLead:  2 * time.Hour,
		MaxRangeDays: 31,
	}, nil)
	svc := unavailabilityService.NewService(blocks, appts, grid, resolver, nil)

	engine := gin.New()
	protected := engine.Group("/api/v1")
	protected.Use(middleware.NewAuthMiddleware(testSecret).Authenticate())
	unavailability.NewHandler(svc).RegisterRoutes(protected)

	return &env{engine: engine, doctor: uuid.New()}
}

func token(t *testing.T, id uuid.UUID, role model.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  id.String(),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *env) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func TestDeclareOwnCalendarOnly(t *testing.T) {
	e := newEnv(t)

	body := map[string]interface{}{
		"doctor_id":   e.doctor,
		"date":        "2026-09-18",
		"is_full_day": true,
	}

	// A different doctor cannot block this calendar.
	w := e.do(t, "POST", "/api/v1/unavailability", body, token(t, uuid.New(), model.RoleDoctor))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Neither can a patient.
	w = e.do(t, "POST", "/api/v1/unavailability", body, token(t, e.doctor, model.RolePatient))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owning doctor can.
	w = e.do(t, "POST", "/api/v1/unavailability", body, token(t, e.doctor, model.RoleDoctor))
	assert.Equal(t, http.StatusCreated, w.Code)

	// So can an admin, for anyone.
	body["date"] = "2026-09-19"
	w = e.do(t, "POST", "/api/v1/unavailability", body, token(t, uuid.New(), model.RoleAdmin))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDeclareListRevoke(t *testing.T) {
	e := newEnv(t)
	doctorToken := token(t, e.doctor, model.RoleDoctor)

	w := e.do(t, "POST", "/api/v1/unavailability", map[string]interface{}{
		"doctor_id": e.doctor,
		"date":      "2026-09-18",
		"slots":     []string{"09:00", "09:30"},
		"reason":    "conference",
	}, doctorToken)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data model.UnavailableBlock `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = e.do(t, "GET",
		fmt.Sprintf("/api/v1/unavailability?doctor_id=%s&from=2026-09-14&to=2026-09-20", e.doctor),
		nil, doctorToken)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Data []model.UnavailableBlock `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, created.Data.ID, listed.Data[0].ID)

	w = e.do(t, "DELETE",
		fmt.Sprintf("/api/v1/unavailability/%s", created.Data.ID), nil, doctorToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, "DELETE",
		fmt.Sprintf("/api/v1/unavailability/%s", created.Data.ID), nil, doctorToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
