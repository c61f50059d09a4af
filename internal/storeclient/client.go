// Package storeclient talks to the record store API on behalf of the
// dashboard. It holds the bearer token of the signed-in session.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/response"
)

// APIError is a non-2xx answer from the record store.
type APIError struct {
	Status  int
	Code    response.ErrCode
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// Client is an HTTP record store client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the API rooted at baseURL. A nil httpClient gets
// a client with a 30 second timeout.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     log.With().Str("component", "storeclient").Logger(),
	}
}

// Token returns the bearer token of the current session, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	req := model.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (*model.UserIdentity, error) {
	var out struct {
		User model.UserIdentity `json:"user"`
	}
	req := model.SignupRequest{Email: email, Password: password, FullName: fullName}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout closes the session on the server. The local token is dropped even
// when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// GetCurrentUser returns the identity of the session, or nil when signed out.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.UserIdentity, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var out struct {
		User model.UserIdentity `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &out); err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			return nil, nil
		}
		return nil, err
	}
	return &out.User, nil
}

// GetUserProfile returns the profile of userID, or nil when it has none.
func (c *Client) GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var out struct {
		Profile model.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles/"+userID.String(), nil, &out); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out.Profile, nil
}

// GetUserRole returns the role of userID, or nil when it has none.
func (c *Client) GetUserRole(ctx context.Context, userID uuid.UUID) (*model.UserRole, error) {
	var out struct {
		Role model.UserRole `json:"role"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/user-roles/"+userID.String(), nil, &out); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out.Role, nil
}

// ListRecords fetches every student, newest first.
func (c *Client) ListRecords(ctx context.Context) ([]model.Student, error) {
	var out struct {
		Students []model.Student `json:"students"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/students", nil, &out); err != nil {
		return nil, err
	}
	if out.Students == nil {
		out.Students = []model.Student{}
	}
	return out.Students, nil
}

// InsertRecord creates a student owned by createdBy.
func (c *Client) InsertRecord(ctx context.Context, fields model.StudentFields, createdBy uuid.UUID) (*model.Student, error) {
	var out struct {
		Student model.Student `json:"student"`
	}
	req := model.CreateStudentRequest{StudentFields: fields, CreatedBy: createdBy.String()}
	if err := c.do(ctx, http.MethodPost, "/api/v1/students", req, &out); err != nil {
		return nil, err
	}
	return &out.Student, nil
}

// UpdateRecord overwrites every field of student id.
func (c *Client) UpdateRecord(ctx context.Context, id uuid.UUID, fields model.StudentFields) error {
	req := model.UpdateStudentRequest{StudentFields: fields}
	return c.do(ctx, http.MethodPut, "/api/v1/students/"+id.String(), req, nil)
}

// DeleteRecord removes student id.
func (c *Client) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/students/"+id.String(), nil, nil)
}

// Summary returns the count of students per status.
func (c *Client) Summary(ctx context.Context) (*model.StudentSummary, error) {
	var out model.StudentSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/students/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads the student workbook into w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/students/export", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// Import uploads a workbook named filename.
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (*model.ImportResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/students/import", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.ImportResult
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if t := c.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Msg("Record store call")

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var env response.Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
	}
	return apiErr
}

func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// wsURL maps the API base URL onto the WebSocket scheme.
func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}
