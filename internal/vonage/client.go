package vonage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/da314jones/CapStone-Backend/internal/models"
)

// ErrArchiveNotFound is returned when the provider does not know the
// archive id. Handlers map it to 404, never 500.
var ErrArchiveNotFound = errors.New("archive not found")

// Client talks to the Vonage Video (OpenTok) REST API. All media recording
// and transcoding happens provider-side; this client only creates sessions,
// issues tokens, and drives archive jobs.
type Client struct {
	apiKey  string
	secret  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a provider client. baseURL is overridable for tests.
func NewClient(apiKey, secret, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type sessionCreateResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession creates a routed media session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("p2p.preference", "disabled") // routed media mode, required for archiving

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/create", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var sessions []sessionCreateResponse
	if err := c.do(req, &sessions); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if len(sessions) == 0 || sessions[0].SessionID == "" {
		return "", fmt.Errorf("create session: empty response")
	}
	return sessions[0].SessionID, nil
}

type startArchiveRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type archiveResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// StartArchive starts a recording job for the session and returns the
// archive descriptor.
func (c *Client) StartArchive(ctx context.Context, sessionID string) (*models.Archive, error) {
	body, err := json.Marshal(startArchiveRequest{SessionID: sessionID, Name: "Session Recording"})
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.archiveURL(""), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp archiveResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("start archive: %w", err)
	}
	return &models.Archive{ID: resp.ID, Status: resp.Status, URL: resp.URL}, nil
}

// StopArchive stops the recording job.
func (c *Client) StopArchive(ctx context.Context, archiveID string) (*models.Archive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.archiveURL(archiveID)+"/stop", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var resp archiveResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("stop archive: %w", err)
	}
	return &models.Archive{ID: resp.ID, Status: resp.Status, URL: resp.URL}, nil
}

// GetArchive fetches the archive status and remote URL.
func (c *Client) GetArchive(ctx context.Context, archiveID string) (*models.Archive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.archiveURL(archiveID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var resp archiveResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return &models.Archive{ID: resp.ID, Status: resp.Status, URL: resp.URL}, nil
}

func (c *Client) archiveURL(archiveID string) string {
	u := fmt.Sprintf("%s/v2/project/%s/archive", c.baseURL, c.apiKey)
	if archiveID != "" {
		u += "/" + archiveID
	}
	return u
}

// do signs the request with a project JWT, executes it and decodes the JSON
// body into out. 404 responses become ErrArchiveNotFound.
func (c *Client) do(req *http.Request, out interface{}) error {
	auth, err := c.projectJWT()
	if err != nil {
		return fmt.Errorf("sign project jwt: %w", err)
	}
	req.Header.Set("X-OPENTOK-AUTH", auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrArchiveNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
