package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EconDash/internal/service/econapi"
	"EconDash/internal/session"
	"EconDash/internal/store"
	"EconDash/pkg/cache"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

type upstream struct {
	mux       *http.ServeMux
	alertHits atomic.Int32
	lastAuth  atomic.Value
	// gates holds a channel per indicator code; its data request blocks
	// until the channel is closed.
	gates map[string]chan struct{}
}

func newUpstream() *upstream {
	u := &upstream{mux: http.NewServeMux(), gates: map[string]chan struct{}{}}
	u.mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
	})
	u.mux.HandleFunc("GET /api/dashboard/summary", func(w http.ResponseWriter, r *http.Request) {
		u.lastAuth.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"code":"GDP","name":"Gross domestic product","value":2.5,"trend":"up"}]`)
	})
	u.mux.HandleFunc("GET /api/indicators/{code}/data", func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		if gate, ok := u.gates[code]; ok {
			<-gate
		}
		_, _ = io.WriteString(w, `{"indicator_code":"`+code+`","indicator_name":"`+code+`","data":[]}`)
	})
	u.mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		u.alertHits.Add(1)
		_, _ = io.WriteString(w, `{"total":1,"items":[{"id":7,"user_id":1,"indicator_code":"GDP","condition":"above","threshold":3,"is_active":true,"created_at":"2024-05-01T10:00:00"}]}`)
	})
	u.mux.HandleFunc("POST /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		u.alertHits.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":8,"user_id":1,"indicator_code":"CPI","condition":"above","threshold":4,"is_active":true,"created_at":"2024-05-01T10:00:00"}`)
	})
	u.mux.HandleFunc("DELETE /api/alerts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return u
}

type fixture struct {
	e          *echo.Echo
	up         *upstream
	session    *store.Session
	indicators *store.Indicators
}

func newFixture(t *testing.T, up *upstream) *fixture {
	t.Helper()
	srv := httptest.NewServer(up.mux)
	t.Cleanup(srv.Close)

	slot := session.NewTokenSlot(cache.NewMemoryCache(), "")
	hc, err := xhttp.NewClient(srv.URL, xhttp.WithCredentials(slot), xhttp.WithTimeout(time.Second))
	require.NoError(t, err)
	api := econapi.New(hc)

	sess, err := store.NewSession(context.Background(), api, slot)
	require.NoError(t, err)

	indicators := store.NewIndicators(api)
	e := echo.New()
	h := NewDashboardHandler(xlogger.Nop(), sess, indicators, store.NewAlerts(api), nil)
	h.RegisterRoutes(e)
	return &fixture{e: e, up: up, session: sess, indicators: indicators}
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	form := url.Values{"username": {"ana"}, "password": {"secret"}}
	rec := f.do(http.MethodPost, "/login", echo.MIMEApplicationForm, form.Encode())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, f.session.IsLoggedIn())
}

func TestDashboard_RedirectsToLoginWithoutSession(t *testing.T) {
	f := newFixture(t, newUpstream())

	for _, path := range []string{"/", "/indicators", "/alerts", "/decision", "/analysis?code=GDP"} {
		rec := f.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation), path)
	}
}

func TestDashboard_LoginPageIsAlwaysReachable(t *testing.T) {
	f := newFixture(t, newUpstream())

	rec := f.do(http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"logged_out"`)
}

func TestDashboard_LoginThenSummary(t *testing.T) {
	f := newFixture(t, newUpstream())
	f.login(t)

	rec := f.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"GDP"`)
	assert.Equal(t, "Bearer tok", f.up.lastAuth.Load())
}

func TestDashboard_LoginRejected(t *testing.T) {
	f := newFixture(t, newUpstream())

	form := url.Values{"username": {"ana"}, "password": {"wrong"}}
	rec := f.do(http.MethodPost, "/login", echo.MIMEApplicationForm, form.Encode())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password")
	assert.False(t, f.session.IsLoggedIn())
}

func TestDashboard_LoginRequiresCredentials(t *testing.T) {
	f := newFixture(t, newUpstream())

	rec := f.do(http.MethodPost, "/login", echo.MIMEApplicationJSON, `{"username":"ana"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUIRED")
}

func TestDashboard_ServiceUnauthorizedEndsSession(t *testing.T) {
	up := newUpstream()
	up.mux.HandleFunc("GET /api/indicators", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	})
	f := newFixture(t, up)
	f.login(t)

	rec := f.do(http.MethodGet, "/indicators", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.session.IsLoggedIn())

	rec = f.do(http.MethodGet, "/indicators", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestDashboard_AlertsLifecycle(t *testing.T) {
	f := newFixture(t, newUpstream())
	f.login(t)

	rec := f.do(http.MethodGet, "/alerts", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = f.do(http.MethodPost, "/alerts", echo.MIMEApplicationJSON, `{"indicator_code":"CPI","threshold":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":8`)

	rec = f.do(http.MethodDelete, "/alerts/8", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDashboard_CreateAlertRejectsBadCondition(t *testing.T) {
	f := newFixture(t, newUpstream())
	f.login(t)

	rec := f.do(http.MethodPost, "/alerts", echo.MIMEApplicationJSON,
		`{"indicator_code":"CPI","condition":"sideways","threshold":4}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ONEOF")
	assert.Zero(t, f.up.alertHits.Load())
}

func TestDashboard_AnalysisRequiresCode(t *testing.T) {
	f := newFixture(t, newUpstream())
	f.login(t)

	rec := f.do(http.MethodGet, "/analysis", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard_Logout(t *testing.T) {
	f := newFixture(t, newUpstream())
	f.login(t)

	rec := f.do(http.MethodPost, "/logout", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.session.IsLoggedIn())
}

func TestDashboard_Health(t *testing.T) {
	f := newFixture(t, newUpstream())

	rec := f.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboard_ThrottlesLoginAttempts(t *testing.T) {
	f := newFixture(t, newUpstream())
	form := url.Values{"username": {"ana"}, "password": {"wrong"}}.Encode()

	var last int
	for range loginBurst + 1 {
		last = f.do(http.MethodPost, "/login", echo.MIMEApplicationForm, form).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestDashboard_OvertakenDetailRequestIsConflict(t *testing.T) {
	up := newUpstream()
	gate := make(chan struct{})
	up.gates["GDP"] = gate
	f := newFixture(t, up)
	f.login(t)

	slow := make(chan *httptest.ResponseRecorder, 1)
	go func() { slow <- f.do(http.MethodGet, "/indicators/GDP", "", "") }()

	// The GDP fetch must be issued before the CPI one to be the older request.
	require.Eventually(t, func() bool {
		return f.indicators.Op(store.OpIndicatorData).Loading
	}, time.Second, 5*time.Millisecond)

	fast := f.do(http.MethodGet, "/indicators/CPI", "", "")
	require.Equal(t, http.StatusOK, fast.Code, fast.Body.String())
	close(gate)

	rec := <-slow
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_SUPERSEDED")
	assert.Equal(t, "CPI", f.indicators.Current().IndicatorCode)
}
