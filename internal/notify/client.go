// Package notify sends statement emails through the GOV.UK Notify API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const uuidLen = 36

// APIError is a non-2xx response from Notify.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notify returned status %d: %s", e.StatusCode, e.Body)
}

type emailRequest struct {
	EmailAddress    string            `json:"email_address"`
	TemplateID      string            `json:"template_id"`
	Personalisation map[string]string `json:"personalisation,omitempty"`
	Reference       string            `json:"reference,omitempty"`
}

// Client posts email notifications, authenticating each request with a
// short-lived token signed by the API key's secret.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceID  string
	secret     []byte
	now        func() time.Time
}

// NewClient parses a Notify API key of the form name-serviceID-secret, where
// both trailing parts are UUIDs.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if len(apiKey) < 2*uuidLen+1 {
		return nil, errors.New("notify api key is too short")
	}
	secret := apiKey[len(apiKey)-uuidLen:]
	serviceID := apiKey[len(apiKey)-2*uuidLen-1 : len(apiKey)-uuidLen-1]

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceID:  serviceID,
		secret:     []byte(secret),
		now:        time.Now,
	}, nil
}

func (c *Client) token() (string, error) {
	claims := jwt.MapClaims{
		"iss": c.serviceID,
		"iat": c.now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *Client) SendEmail(ctx context.Context, templateID, to string, personalisation map[string]string, reference string) error {
	body, err := json.Marshal(emailRequest{
		EmailAddress:    to,
		TemplateID:      templateID,
		Personalisation: personalisation,
		Reference:       reference,
	})
	if err != nil {
		return err
	}

	token, err := c.token()
	if err != nil {
		return fmt.Errorf("failed to sign notify token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/notifications/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return nil
}
