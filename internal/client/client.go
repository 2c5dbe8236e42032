// Package client talks to the audit HTTP API on behalf of one actor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10

	headerUserID       = "X-User-ID"
	headerUserRole     = "X-User-Role"
	headerDepartmentID = "X-Department-ID"
)

// ErrUnauthenticated is matched by a 401 APIError.
var ErrUnauthenticated = errors.New("unauthenticated")

// APIError is a non-2xx answer from the server. It matches the service sentinel
// errors through errors.Is so callers can branch the same way on both sides.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("audit api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("audit api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == service.ErrInvalidInput
	case http.StatusUnauthorized:
		return target == ErrUnauthenticated
	case http.StatusForbidden:
		return target == service.ErrForbidden
	case http.StatusNotFound:
		return target == service.ErrNotFound
	}
	return false
}

type Client struct {
	baseURL    *url.URL
	actor      service.Actor
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, whose timeout is 15s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New builds a client that sends every request as actor.
func New(baseURL string, actor service.Actor, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:    u,
		actor:      actor,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Actor returns the identity the client sends.
func (c *Client) Actor() service.Actor { return c.actor }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerUserID, strconv.FormatInt(c.actor.UserID, 10))
	req.Header.Set(headerUserRole, c.actor.Role)
	req.Header.Set(headerDepartmentID, strconv.FormatInt(c.actor.DepartmentID, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// keyed reads the value under key from a {"success": true, key: ...} envelope.
func keyed[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, key string) (T, error) {
	var out T
	var env map[string]json.RawMessage
	if err := c.do(ctx, method, path, query, body, &env); err != nil {
		return out, err
	}
	raw, ok := env[key]
	if !ok {
		return out, fmt.Errorf("%s response has no %q field", path, key)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func period(from, to string) url.Values {
	q := url.Values{}
	if from != "" {
		q.Set("data_inicio", from)
	}
	if to != "" {
		q.Set("data_fim", to)
	}
	return q
}

func auditPath(id int64, suffix string) string {
	return "/api/auditoria/" + strconv.FormatInt(id, 10) + "/" + suffix
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// ScorePreview asks the server to score the flags against the department threshold.
func (c *Client) ScorePreview(ctx context.Context, set scoring.CriterionSet) (service.ScorePreview, error) {
	return keyed[service.ScorePreview](ctx, c, http.MethodPost, "/api/auditoria/score/", nil, service.Criteria(set), "score")
}

func (c *Client) CreateAudit(ctx context.Context, in service.AuditInput) (service.AuditConfirmation, error) {
	return keyed[service.AuditConfirmation](ctx, c, http.MethodPost, "/api/auditoria/create/", nil, in, "auditoria")
}

func (c *Client) UpdateAudit(ctx context.Context, id int64, in service.AuditInput) (service.AuditConfirmation, error) {
	return keyed[service.AuditConfirmation](ctx, c, http.MethodPost, auditPath(id, "update/"), nil, in, "auditoria")
}

func (c *Client) DeleteAudit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, auditPath(id, "delete/"), nil, nil, nil)
}

func (c *Client) GetAudit(ctx context.Context, id int64) (service.AuditDetail, error) {
	return keyed[service.AuditDetail](ctx, c, http.MethodGet, auditPath(id, ""), nil, nil, "auditoria")
}

func (c *Client) ListAudits(ctx context.Context, lq service.ListQuery) (service.ListResult, error) {
	q := period(lq.DateFrom, lq.DateTo)
	if lq.AnalystID > 0 {
		q.Set("analista_id", strconv.FormatInt(lq.AnalystID, 10))
	}
	if lq.ServiceType != "" {
		q.Set("tipo", lq.ServiceType)
	}
	if lq.Classification != "" {
		q.Set("classificacao", lq.Classification)
	}
	if lq.OnlyAlerts {
		q.Set("apenas_alertas", "true")
	}
	if lq.Page > 0 {
		q.Set("page", strconv.Itoa(lq.Page))
	}
	if lq.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(lq.PerPage))
	}
	var out service.ListResult
	err := c.do(ctx, http.MethodGet, "/api/auditoria/list/", q, nil, &out)
	return out, err
}

func (c *Client) Ranking(ctx context.Context, from, to string) ([]service.RankingEntry, error) {
	return keyed[[]service.RankingEntry](ctx, c, http.MethodGet, "/api/auditoria/ranking/", period(from, to), nil, "ranking")
}

func (c *Client) AnalystStats(ctx context.Context, analystID int64) (service.AnalystStats, error) {
	var out service.AnalystStats
	path := "/api/auditoria/analista/" + strconv.FormatInt(analystID, 10) + "/"
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, from, to string) (service.Dashboard, error) {
	var out service.Dashboard
	err := c.do(ctx, http.MethodGet, "/api/auditoria/dashboard/", period(from, to), nil, &out)
	return out, err
}

func (c *Client) GetConfiguration(ctx context.Context) (service.ConfigurationView, error) {
	return keyed[service.ConfigurationView](ctx, c, http.MethodGet, "/api/auditoria/config/", nil, nil, "configuracao")
}

func (c *Client) UpdateConfiguration(ctx context.Context, patch service.ConfigurationPatch) (service.ConfigurationView, error) {
	return keyed[service.ConfigurationView](ctx, c, http.MethodPost, "/api/auditoria/config/update/", nil, patch, "configuracao")
}

func (c *Client) ListAnalysts(ctx context.Context) ([]service.AnalystView, error) {
	return keyed[[]service.AnalystView](ctx, c, http.MethodGet, "/api/auditoria/analistas/", nil, nil, "analistas")
}
