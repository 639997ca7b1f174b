package econapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EconDash/internal/domain/models"
	xhttp "EconDash/pkg/http"
)

type request struct {
	method string
	path   string
	query  string
	body   []byte
}

func newTestClient(t *testing.T, status int, resp string) (*Client, *request) {
	t.Helper()
	got := &request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)

	hc, err := xhttp.NewClient(srv.URL)
	require.NoError(t, err)
	return New(hc), got
}

func TestRegister_OmitsMissingEmail(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"id":1,"username":"bob","is_active":true,"created_at":"2024-01-01T00:00:00"}`)

	user, err := c.Register(context.Background(), &models.RegisterRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.body, &payload))
	assert.NotContains(t, payload, "email")
	assert.Equal(t, "bob", payload["username"])
	assert.Equal(t, "bob", user.Username)
}

func TestRegister_IncludesEmail(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"id":2,"username":"alice","email":"a@x.com","is_active":true,"created_at":"2024-01-01T00:00:00"}`)

	email := "a@x.com"
	_, err := c.Register(context.Background(), &models.RegisterRequest{Username: "alice", Password: "pw", Email: &email})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.body, &payload))
	assert.Equal(t, "a@x.com", payload["email"])
}

func TestLogin_RejectsEmptyToken(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"access_token":"","token_type":"bearer"}`)

	_, err := c.Login(context.Background(), "alice", "pw")
	assert.Error(t, err)
}

func TestIndicatorData_ForwardsForceUpdate(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{
		"indicator_code":"cpi","indicator_name":"CPI","unit":"%",
		"data":[{"date":"2024-02-01T00:00:00","value":0.7},{"date":"2024-01-01T00:00:00","value":-0.8}],
		"latest_value":0.7,"change_percent":187.5}`)

	data, err := c.IndicatorData(context.Background(), "cpi", true)
	require.NoError(t, err)

	assert.Equal(t, "/api/indicators/cpi/data", got.path)
	assert.Equal(t, "force_update=true", got.query)
	require.Len(t, data.Points, 2)
	assert.Equal(t, 2024, data.Points[0].Date.Year())
	require.NotNil(t, data.LatestValue)
	assert.InDelta(t, 0.7, *data.LatestValue, 1e-9)
}

func TestTrend_DecodesOptionalFields(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{
		"indicator_code":"gdp","trend":"up","change_percent":5.2,"ma_7":1.1,
		"prediction":{"predicted":130.5,"trend":"up","confidence":"medium"}}`)

	trend, err := c.Trend(context.Background(), "gdp")
	require.NoError(t, err)

	assert.Equal(t, "/api/indicators/gdp/trend", got.path)
	assert.Nil(t, trend.MovingAverage30)
	require.NotNil(t, trend.MovingAverage7)
	require.NotNil(t, trend.Prediction)
	assert.Equal(t, "medium", trend.Prediction.Confidence)
}

func TestListAlerts_SendsWindow(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"total":0,"items":[]}`)

	_, err := c.ListAlerts(context.Background(), 0, 100)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "limit=100&skip=0", got.query)
}

func TestUpdateAlert_SendsOnlySetFields(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"id":5,"user_id":1,"indicator_code":"cpi","condition":"above","threshold":3,"is_active":false,"created_at":"2024-01-01T00:00:00"}`)

	active := false
	rule, err := c.UpdateAlert(context.Background(), 5, &models.UpdateAlertRequest{IsActive: &active})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/alerts/5", got.path)
	assert.JSONEq(t, `{"is_active":false}`, string(got.body))
	assert.False(t, rule.IsActive)
}

func TestDeleteAlert_PropagatesNotFound(t *testing.T) {
	c, got := newTestClient(t, http.StatusNotFound, `{"detail":"Alert not found"}`)

	err := c.DeleteAlert(context.Background(), 9)

	assert.Equal(t, http.MethodDelete, got.method)
	assert.True(t, xhttp.IsNotFound(err))
}

func TestCheckAlerts_ReturnsRaw(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `[{"alert_id":3,"indicator_code":"pmi","condition":"below","threshold":50,"current_value":49.1,"triggered_at":"2024-05-01T08:00:00"}]`)

	raw, err := c.CheckAlerts(context.Background())
	require.NoError(t, err)

	triggers, err := models.DecodeTriggers(raw)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, int64(3), triggers[0].AlertID)
}

func TestCompare_SendsCodes(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"gdp":[],"cpi":[]}`)

	raw, err := c.Compare(context.Background(), &models.CompareRequest{Codes: []string{"gdp", "cpi"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"codes":["gdp","cpi"]}`, string(got.body))
	assert.JSONEq(t, `{"gdp":[],"cpi":[]}`, string(raw))
}
