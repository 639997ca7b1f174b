package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"EconDash/internal/domain/models"
	xhttp "EconDash/pkg/http"
)

var errUnauthorized = &xhttp.ServiceError{Status: http.StatusUnauthorized, Detail: "Incorrect username or password"}

type memTokens struct {
	mu       sync.Mutex
	token    string
	saveErr  error
	clearErr error
}

func (m *memTokens) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.token = ""
	return nil
}

func (m *memTokens) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type fakeAuth struct {
	login    func(ctx context.Context, username, password string) (*models.LoginResponse, error)
	register func(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	return f.login(ctx, username, password)
}

func (f *fakeAuth) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return f.register(ctx, req)
}

type fakeIndicators struct {
	list    func(ctx context.Context) (*models.IndicatorList, error)
	data    func(ctx context.Context, code string, force bool) (*models.IndicatorData, error)
	compare func(ctx context.Context, req *models.CompareRequest) (json.RawMessage, error)
	trend   func(ctx context.Context, code string) (*models.TrendAnalysis, error)
	summary func(ctx context.Context) ([]models.IndicatorSummary, error)
}

func (f *fakeIndicators) ListIndicators(ctx context.Context) (*models.IndicatorList, error) {
	return f.list(ctx)
}

func (f *fakeIndicators) IndicatorData(ctx context.Context, code string, force bool) (*models.IndicatorData, error) {
	return f.data(ctx, code, force)
}

func (f *fakeIndicators) Compare(ctx context.Context, req *models.CompareRequest) (json.RawMessage, error) {
	return f.compare(ctx, req)
}

func (f *fakeIndicators) Trend(ctx context.Context, code string) (*models.TrendAnalysis, error) {
	return f.trend(ctx, code)
}

func (f *fakeIndicators) DashboardSummary(ctx context.Context) ([]models.IndicatorSummary, error) {
	return f.summary(ctx)
}

type fakeAlerts struct {
	mu     sync.Mutex
	nextID int64
	calls  int

	list   func(ctx context.Context, skip, limit int) (*models.AlertList, error)
	create func(ctx context.Context, req *models.CreateAlertRequest) (*models.AlertRule, error)
	check  func(ctx context.Context) (json.RawMessage, error)
	update func(ctx context.Context, id int64, req *models.UpdateAlertRequest) (*models.AlertRule, error)
	delete func(ctx context.Context, id int64) error
}

func (f *fakeAlerts) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeAlerts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAlerts) CreateAlert(ctx context.Context, req *models.CreateAlertRequest) (*models.AlertRule, error) {
	f.count()
	if f.create != nil {
		return f.create(ctx, req)
	}
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.mu.Unlock()
	return &models.AlertRule{
		ID:            id,
		IndicatorCode: req.IndicatorCode,
		Condition:     req.Condition,
		Threshold:     req.Threshold,
		IsActive:      true,
	}, nil
}

func (f *fakeAlerts) ListAlerts(ctx context.Context, skip, limit int) (*models.AlertList, error) {
	f.count()
	return f.list(ctx, skip, limit)
}

func (f *fakeAlerts) CheckAlerts(ctx context.Context) (json.RawMessage, error) {
	f.count()
	return f.check(ctx)
}

func (f *fakeAlerts) UpdateAlert(ctx context.Context, id int64, req *models.UpdateAlertRequest) (*models.AlertRule, error) {
	f.count()
	return f.update(ctx, id, req)
}

func (f *fakeAlerts) DeleteAlert(ctx context.Context, id int64) error {
	f.count()
	if f.delete != nil {
		return f.delete(ctx, id)
	}
	return nil
}

// gate blocks a fake call until released, and reports when it was entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
