package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"steward/internal/controller"
)

// Client talks to a running steward server over its HTTP API. One-shot
// commands prefer the server when it is up so they see the controller's
// live status instead of recomputing it.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates an API client for the given endpoint. An empty endpoint
// is resolved from the environment and configuration.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DetectServerEndpoint()
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// ListApplications fetches the status of all applications.
func (c *Client) ListApplications(ctx context.Context) ([]controller.AppStatus, error) {
	var body struct {
		Applications []controller.AppStatus `json:"applications"`
	}
	if err := c.get(ctx, "/api/v1/applications", &body); err != nil {
		return nil, err
	}
	return body.Applications, nil
}

// GetApplication fetches the status of one application.
func (c *Client) GetApplication(ctx context.Context, name string) (controller.AppStatus, error) {
	var status controller.AppStatus
	if err := c.get(ctx, "/api/v1/applications/"+name, &status); err != nil {
		return controller.AppStatus{}, err
	}
	return status, nil
}

// TriggerSync asks the server to queue a manual sync pass.
func (c *Client) TriggerSync(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/applications/"+name+"/sync", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting steward server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return apiError(resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contacting steward server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}

// WithSpinner runs fn with a terminal spinner while it works. Output going
// to a pipe skips the spinner.
func WithSpinner(message string, fn func() error) error {
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()

	return fn()
}
