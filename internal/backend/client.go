package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"petsync/internal/config"
	"petsync/internal/queue"
	"petsync/internal/services"
)

const component = "backend"

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends queued actions to the backend API.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	client    HTTPDoer
}

type route struct {
	method string
	path   string
	// petScoped routes substitute the payload's pet_id into the path.
	petScoped bool
}

var routes = map[queue.ActionType]route{
	queue.ActionUpdateProfile:     {method: http.MethodPut, path: "/users/me"},
	queue.ActionUpdatePreferences: {method: http.MethodPut, path: "/users/me/notification-preferences"},
	queue.ActionSubmitStory:       {method: http.MethodPost, path: "/success-stories"},
	queue.ActionReportMissing:     {method: http.MethodPost, path: "/pets/%s/mark-missing", petScoped: true},
	queue.ActionMarkFound:         {method: http.MethodPost, path: "/pets/%s/mark-found", petScoped: true},
	queue.ActionUpdatePrivacy:     {method: http.MethodPut, path: "/users/me/privacy"},
}

// New builds a client from configuration.
func New(cfg *config.Config) *Client {
	timeout := 15 * time.Second
	var baseURL, token, agent string
	if cfg != nil {
		if cfg.API.RequestTimeout > 0 {
			timeout = time.Duration(cfg.API.RequestTimeout) * time.Second
		}
		baseURL = cfg.API.BaseURL
		token = cfg.API.Token
		agent = cfg.API.UserAgent
	}
	return NewWithClient(baseURL, token, agent, &http.Client{Timeout: timeout})
}

// NewWithClient constructs a client around an explicit HTTP doer.
func NewWithClient(baseURL, token, userAgent string, client HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = "PetSync/0.1.0"
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:     strings.TrimSpace(token),
		userAgent: userAgent,
		client:    client,
	}
}

// Endpoint resolves the HTTP method and URL an action is sent to.
func (c *Client) Endpoint(action *queue.Action) (string, string, error) {
	if action == nil {
		return "", "", services.Wrap(services.ErrValidation, component, "resolve endpoint", "action is nil", nil)
	}
	r, ok := routes[action.Type]
	if !ok {
		return "", "", services.Wrap(services.ErrValidation, component, "resolve endpoint", fmt.Sprintf("unsupported action type %q", action.Type), nil)
	}
	path := r.path
	if r.petScoped {
		petID, err := payloadPetID(action.Payload)
		if err != nil {
			return "", "", err
		}
		path = fmt.Sprintf(r.path, url.PathEscape(petID))
	}
	return r.method, c.baseURL + path, nil
}

// Attempt sends one action. A nil return means the backend accepted it.
func (c *Client) Attempt(ctx context.Context, action *queue.Action) error {
	if c == nil || c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, component, "attempt", "api.base_url not configured", nil)
	}
	method, endpoint, err := c.Endpoint(action)
	if err != nil {
		return err
	}
	operation := string(action.Type)

	body := action.Payload
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrUnknown, component, operation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Idempotency-Key", action.ID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrNetwork, component, operation, "request cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrNetwork, component, operation, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if msg := serverMessage(data); msg != "" {
		detail = fmt.Sprintf("%s: %s", detail, msg)
	}
	return services.Wrap(markerForStatus(resp.StatusCode), component, operation, detail, nil)
}

// Health issues GET {base_url}/health and reports any non-2xx response.
func (c *Client) Health(ctx context.Context) error {
	if c == nil || c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, component, "health", "api.base_url not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetwork, component, "health", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(markerForStatus(resp.StatusCode), component, "health", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	return nil
}

func markerForStatus(status int) error {
	switch {
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return services.ErrNetwork
	case status >= 400:
		return services.ErrServerRejected
	default:
		return services.ErrUnknown
	}
}

func serverMessage(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
		return ""
	}
	text := strings.TrimSpace(string(trimmed))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func payloadPetID(payload json.RawMessage) (string, error) {
	var body struct {
		PetID json.RawMessage `json:"pet_id"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &body); err != nil {
			return "", services.Wrap(services.ErrValidation, component, "resolve endpoint", "payload is not a JSON object", err)
		}
	}
	var id string
	if len(body.PetID) > 0 {
		var asString string
		if err := json.Unmarshal(body.PetID, &asString); err == nil {
			id = strings.TrimSpace(asString)
		} else {
			var asNumber json.Number
			if err := json.Unmarshal(body.PetID, &asNumber); err == nil {
				id = asNumber.String()
			}
		}
	}
	if id == "" {
		return "", services.Wrap(services.ErrValidation, component, "resolve endpoint", "payload missing pet_id", nil)
	}
	return id, nil
}
