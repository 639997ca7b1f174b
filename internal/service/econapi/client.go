// Package econapi binds the economic indicator service endpoints to typed
// calls over the transport client.
package econapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
	xhttp "EconDash/pkg/http"
)

// Sender is the transport used by Client.
type Sender interface {
	Send(ctx context.Context, opts *xhttp.RequestOptions, dest interface{}) error
}

// Client implements the auth, indicator and alert APIs.
type Client struct {
	http Sender
}

var (
	_ drepo.AuthAPI      = (*Client)(nil)
	_ drepo.IndicatorAPI = (*Client)(nil)
	_ drepo.AlertAPI     = (*Client)(nil)
)

// New creates an API binding over sender.
func New(sender Sender) *Client {
	return &Client{http: sender}
}

// Login exchanges credentials for a token. The service expects an OAuth2
// password form.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		Path:   "/api/auth/login",
		Body:   map[string]string{"username": username, "password": password},
		Form:   true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login: service returned an empty access token")
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	var out models.User
	err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		Path:   "/api/auth/register",
		Body:   req,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

func (c *Client) ListIndicators(ctx context.Context) (*models.IndicatorList, error) {
	var out models.IndicatorList
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/indicators",
	}, &out); err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	return &out, nil
}

func (c *Client) IndicatorData(ctx context.Context, code string, forceUpdate bool) (*models.IndicatorData, error) {
	var out models.IndicatorData
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/indicators/" + url.PathEscape(code) + "/data",
		Query:  url.Values{"force_update": {strconv.FormatBool(forceUpdate)}},
	}, &out); err != nil {
		return nil, fmt.Errorf("indicator data %s: %w", code, err)
	}
	return &out, nil
}

// Compare returns the service's comparison payload untouched.
func (c *Client) Compare(ctx context.Context, req *models.CompareRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		Path:   "/api/indicators/compare",
		Body:   req,
	}, &out); err != nil {
		return nil, fmt.Errorf("compare indicators: %w", err)
	}
	return out, nil
}

func (c *Client) Trend(ctx context.Context, code string) (*models.TrendAnalysis, error) {
	var out models.TrendAnalysis
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/indicators/" + url.PathEscape(code) + "/trend",
	}, &out); err != nil {
		return nil, fmt.Errorf("trend %s: %w", code, err)
	}
	return &out, nil
}

func (c *Client) DashboardSummary(ctx context.Context) ([]models.IndicatorSummary, error) {
	var out []models.IndicatorSummary
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/dashboard/summary",
	}, &out); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return out, nil
}

func (c *Client) CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.AlertRule, error) {
	var out models.AlertRule
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		Path:   "/api/alerts",
		Body:   req,
	}, &out); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return &out, nil
}

func (c *Client) ListAlerts(ctx context.Context, skip, limit int) (*models.AlertList, error) {
	var out models.AlertList
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/alerts",
		Query: url.Values{
			"skip":  {strconv.Itoa(skip)},
			"limit": {strconv.Itoa(limit)},
		},
	}, &out); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return &out, nil
}

// CheckAlerts asks the service to evaluate every active rule. The result is
// returned raw.
func (c *Client) CheckAlerts(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		Path:   "/api/alerts/check",
	}, &out); err != nil {
		return nil, fmt.Errorf("check alerts: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateAlert(ctx context.Context, id int64, req *models.UpdateAlertRequest) (*models.AlertRule, error) {
	var out models.AlertRule
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPut,
		Path:   "/api/alerts/" + strconv.FormatInt(id, 10),
		Body:   req,
	}, &out); err != nil {
		return nil, fmt.Errorf("update alert %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) DeleteAlert(ctx context.Context, id int64) error {
	if err := c.http.Send(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodDelete,
		Path:   "/api/alerts/" + strconv.FormatInt(id, 10),
	}, nil); err != nil {
		return fmt.Errorf("delete alert %d: %w", id, err)
	}
	return nil
}
