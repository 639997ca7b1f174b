package repository

import (
	"context"
	"encoding/json"

	"EconDash/internal/domain/models"
)

// AuthAPI covers the authentication endpoints of the service.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

// IndicatorAPI covers the indicator and dashboard endpoints.
type IndicatorAPI interface {
	ListIndicators(ctx context.Context) (*models.IndicatorList, error)
	IndicatorData(ctx context.Context, code string, forceUpdate bool) (*models.IndicatorData, error)
	Compare(ctx context.Context, req *models.CompareRequest) (json.RawMessage, error)
	Trend(ctx context.Context, code string) (*models.TrendAnalysis, error)
	DashboardSummary(ctx context.Context) ([]models.IndicatorSummary, error)
}

// AlertAPI covers the alert rule endpoints.
type AlertAPI interface {
	CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.AlertRule, error)
	ListAlerts(ctx context.Context, skip, limit int) (*models.AlertList, error)
	CheckAlerts(ctx context.Context) (json.RawMessage, error)
	UpdateAlert(ctx context.Context, id int64, req *models.UpdateAlertRequest) (*models.AlertRule, error)
	DeleteAlert(ctx context.Context, id int64) error
}

// TokenStore is the durable slot holding the raw session token. Load
// returns "" when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TriggerPublisher forwards fired alert triggers downstream.
type TriggerPublisher interface {
	PublishTriggers(ctx context.Context, triggers []models.AlertTrigger) error
	Close() error
}

type Metrics interface {
	RecordOperation(store, op, result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordTriggers(n int)
}
