package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/dbtest"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/handlers"
	"github.com/uof-cases/incident-service/internal/identity"
	"github.com/uof-cases/incident-service/internal/notify"
	"github.com/uof-cases/incident-service/internal/reminders"
	"github.com/uof-cases/incident-service/internal/services"
)

const testSecret = "test-secret"

type noEmails struct{}

func (noEmails) Email(context.Context, string) (*identity.UserEmail, error) {
	return nil, identity.ErrUserNotFound
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db := dbtest.New(t)
	cfg := &config.Config{
		JWTSecret:               testSecret,
		CoordinatorUserIDs:      "COORD",
		StatementReminderOffset: 24 * time.Hour,
		StatementOverdueOffset:  72 * time.Hour,
		ReminderInterval:        24 * time.Hour,
		ReminderMaxIterations:   50,
		CORSOrigins:             "*",
	}

	registry := agency.NewRegistry()
	registry.Register(&agency.Agency{AgencyID: "MDI", Name: "Moorland", Active: true})
	registry.Register(&agency.Agency{AgencyID: "OLD", Name: "Closed", Active: false})

	mailer := notify.NewService(notify.LogClient{}, registry, cfg)
	reportService := services.NewReportService(db, cfg, mailer, events.Discard{})
	statementService := services.NewStatementService(db, reportService, events.Discard{})
	poller := reminders.NewPoller(db, cfg, mailer, identity.NewResolver(noEmails{}), events.Discard{})
	scheduler := reminders.NewScheduler(poller, time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Setup(app, cfg, registry,
		handlers.NewHealthHandler(db, registry),
		handlers.NewReportHandler(reportService),
		handlers.NewStatementHandler(statementService),
		handlers.NewIncidentHandler(reportService, statementService, scheduler),
	)
	return app
}

func token(t *testing.T, sub, agencyID string, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":       sub,
		"name":      sub,
		"email":     sub + "@example.com",
		"agency_id": agencyID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func call(t *testing.T, app *fiber.App, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func completeForm() map[string]any {
	return map[string]any{
		"incidentDetails":       map[string]any{"locationId": 12},
		"useOfForceDetails":     map[string]any{"batonDrawn": false},
		"relocationAndInjuries": map[string]any{"prisonerInjuries": false},
		"evidence":              map[string]any{"cctvRecording": "NO"},
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["db"])
	assert.EqualValues(t, 2, body["agency_count"])
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/reports", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodGet, "/api/reports", token(t, "JO", "OLD"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/api/reports", token(t, "JO", ""), nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestReportAndStatementFlow(t *testing.T) {
	app := newTestApp(t)
	owner := token(t, "OWNER", "MDI")
	alice := token(t, "ALICE", "MDI")
	reviewer := token(t, "REVIEW", "MDI", "REVIEWER")

	status, body := call(t, app, http.MethodPost, "/api/reports", owner, map[string]any{
		"subject_ref": "A1234BC",
		"form":        map[string]any{"incidentDetails": map[string]any{"locationId": 12}},
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, _ = call(t, app, http.MethodPost, "/api/reports", owner, map[string]any{"subject_ref": "A1234BC"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodPost, "/api/reports/"+id+"/submit", owner, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["missing"], "incidentDate")

	status, _ = call(t, app, http.MethodPut, "/api/reports/"+id, owner, map[string]any{
		"form":          completeForm(),
		"incident_date": "2026-03-01T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, app, http.MethodPost, "/api/reports/"+id+"/submit", owner, map[string]any{
		"involved_staff": []map[string]any{{"user_id": "ALICE", "name": "Alice", "email": "alice@example.com"}},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["statement_ids"], 2)

	status, body = call(t, app, http.MethodGet, "/api/statements", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = call(t, app, http.MethodPost, "/api/reports/"+id+"/statement/submit", alice, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["fields"], "statement")

	answer := map[string]any{
		"last_training_month": 3,
		"last_training_year":  2025,
		"job_start_year":      2018,
		"statement":           "I restrained the prisoner's right arm.",
	}
	for _, who := range []string{alice, owner} {
		status, _ = call(t, app, http.MethodPut, "/api/reports/"+id+"/statement", who, answer)
		require.Equal(t, http.StatusOK, status)
		status, _ = call(t, app, http.MethodPost, "/api/reports/"+id+"/statement/submit", who, nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body = call(t, app, http.MethodGet, "/api/reports/"+id, owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMPLETE", body["status"])

	status, body = call(t, app, http.MethodGet, "/api/incidents?status=complete", reviewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = call(t, app, http.MethodGet, "/api/incidents/"+id+"/logs", reviewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 3)

	status, body = call(t, app, http.MethodGet, "/api/reports/"+id+"/statement", alice, nil)
	require.Equal(t, http.StatusOK, status)
	statementID := body["id"].(string)

	status, _ = call(t, app, http.MethodPost, "/api/statements/"+statementID+"/amendments", alice, map[string]any{"comment": "Also present: a second officer"})
	require.Equal(t, http.StatusCreated, status)

	status, body = call(t, app, http.MethodGet, "/api/statements/"+statementID+"/amendments", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)
}

func TestRoleGates(t *testing.T) {
	app := newTestApp(t)
	reporter := token(t, "JO", "MDI")
	coordinator := token(t, "COORD", "MDI")

	status, _ := call(t, app, http.MethodGet, "/api/incidents", reporter, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodPost, "/api/coordinator/reminders/run", reporter, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, http.MethodPost, "/api/coordinator/reminders/run", coordinator, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["sent"])

	status, _ = call(t, app, http.MethodDelete, "/api/coordinator/reports/not-a-uuid", coordinator, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodDelete, "/api/coordinator/reports/6f1c6a9e-3c55-4d6f-9a8e-0c7a2b1d4e5f", coordinator, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCoordinatorDeletesReport(t *testing.T) {
	app := newTestApp(t)
	owner := token(t, "OWNER", "MDI")
	coordinator := token(t, "COORD", "MDI")

	status, body := call(t, app, http.MethodPost, "/api/reports", owner, map[string]any{"subject_ref": "A1234BC"})
	require.Equal(t, http.StatusCreated, status)
	id := body["id"].(string)

	status, _ = call(t, app, http.MethodDelete, "/api/coordinator/reports/"+id, coordinator, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodGet, "/api/reports/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
