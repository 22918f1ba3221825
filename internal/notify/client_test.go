package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testServiceID = "26785a09-ab16-4eb0-8407-a37497a57506"
	testSecret    = "3d844edf-8d35-48ac-975b-e847b4f122b0"
	testAPIKey    = "uof_test-" + testServiceID + "-" + testSecret
)

func TestNewClient_ParsesKey(t *testing.T) {
	c, err := NewClient("http://notify.local/", testAPIKey, time.Second)
	require.NoError(t, err)
	assert.Equal(t, testServiceID, c.serviceID)
	assert.Equal(t, []byte(testSecret), c.secret)
	assert.Equal(t, "http://notify.local", c.baseURL)

	_, err = NewClient("http://notify.local", "short", time.Second)
	assert.Error(t, err)
}

func TestSendEmail(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/notifications/email", r.URL.Path)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		assert.NoError(t, err)
		assert.Equal(t, testServiceID, claims["iss"])

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testAPIKey, time.Second)
	require.NoError(t, err)

	err = c.SendEmail(context.Background(), "tmpl-1", "jo@example.com", map[string]string{"pending_name": "Jo"}, "ref-1")
	require.NoError(t, err)

	assert.Equal(t, "tmpl-1", got.TemplateID)
	assert.Equal(t, "jo@example.com", got.EmailAddress)
	assert.Equal(t, "Jo", got.Personalisation["pending_name"])
	assert.Equal(t, "ref-1", got.Reference)
}

func TestSendEmail_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"error":"BadRequestError"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testAPIKey, time.Second)
	require.NoError(t, err)

	err = c.SendEmail(context.Background(), "tmpl-1", "jo@example.com", nil, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "BadRequestError")
}
