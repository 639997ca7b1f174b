package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mux          *http.ServeMux
	token        string
	alertsStatus atomic.Int32
	alertPosts   atomic.Int32
	lastBody     atomic.Value
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	s := &fakeService{mux: http.NewServeMux(), token: token}
	s.alertsStatus.Store(http.StatusOK)

	s.mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"`+s.token+`","token_type":"bearer"}`)
	})
	s.mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))
		_, _ = io.WriteString(w, `{"id":3,"username":"ana","is_active":true,"created_at":"2024-05-01T10:00:00"}`)
	})
	s.mux.HandleFunc("GET /api/dashboard/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"code":"GDP","name":"Gross domestic product","value":2.5,"change":0.1,"trend":"up"}]`)
	})
	s.mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if status := int(s.alertsStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"total":1,"items":[{"id":7,"user_id":1,"indicator_code":"CPI","condition":"above","threshold":4,"is_active":true,"created_at":"2024-05-01T10:00:00"}]}`)
	})
	s.mux.HandleFunc("POST /api/alerts", func(w http.ResponseWriter, r *http.Request) {
		s.alertPosts.Add(1)
		_, _ = io.WriteString(w, `{"id":8,"user_id":1,"indicator_code":"CPI","condition":"below","threshold":1,"is_active":true,"created_at":"2024-05-01T10:00:00"}`)
	})

	srv := httptest.NewServer(s.mux)
	t.Cleanup(srv.Close)

	t.Setenv("ECONDASH_API_URL", srv.URL)
	t.Setenv("ECONDASH_TOKEN_BACKEND", "sqlite")
	t.Setenv("ECONDASH_TOKEN_PATH", filepath.Join(t.TempDir(), "econdash.db"))
	t.Setenv("ECONDASH_LOG_LEVEL", "error")
	return s
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_SubcommandsList(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"login", "logout", "register", "status", "summary", "indicators", "indicator", "trend", "compare", "alerts", "serve", "watch"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "econdash 1.2.3\n", out)
}

func TestLoginStatusSummaryLogout(t *testing.T) {
	newFakeService(t)

	_, err := execute(t, "", "login", "-u", "ana", "-p", "secret")
	require.NoError(t, err)

	out, err := execute(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "logged_in"`)
	assert.Contains(t, out, `"subject": "ana"`)

	out, err = execute(t, "", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "GDP")
	assert.Contains(t, out, "2.5")

	_, err = execute(t, "", "logout")
	require.NoError(t, err)

	out, err = execute(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "logged_out"`)
}

func TestLogin_ReadsPasswordFromStdin(t *testing.T) {
	newFakeService(t)

	_, err := execute(t, "secret\n", "login", "-u", "ana")
	require.NoError(t, err)
}

func TestLogin_Rejected(t *testing.T) {
	newFakeService(t)

	_, err := execute(t, "", "login", "-u", "ana", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect username or password")

	out, err := execute(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "logged_out"`)
}

func TestSummary_RequiresLogin(t *testing.T) {
	newFakeService(t)

	_, err := execute(t, "", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestAlerts_UnauthorizedLogsOut(t *testing.T) {
	svc := newFakeService(t)
	_, err := execute(t, "", "login", "-u", "ana", "-p", "secret")
	require.NoError(t, err)

	svc.alertsStatus.Store(http.StatusUnauthorized)
	_, err = execute(t, "", "alerts")
	require.Error(t, err)
	assert.ErrorIs(t, err, errSessionExpired)

	out, err := execute(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "logged_out"`)
}

func TestAlerts_ListAndCreate(t *testing.T) {
	svc := newFakeService(t)
	_, err := execute(t, "", "login", "-u", "ana", "-p", "secret")
	require.NoError(t, err)

	out, err := execute(t, "", "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "CPI")

	out, err = execute(t, "", "alerts", "create", "--indicator", "CPI", "--condition", "below", "--threshold", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "created alert 8")
	assert.EqualValues(t, 1, svc.alertPosts.Load())
}

func TestAlertsCreate_RejectsUnknownCondition(t *testing.T) {
	svc := newFakeService(t)
	_, err := execute(t, "", "login", "-u", "ana", "-p", "secret")
	require.NoError(t, err)

	_, err = execute(t, "", "alerts", "create", "--indicator", "CPI", "--condition", "sideways", "--threshold", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid alert")
	assert.Zero(t, svc.alertPosts.Load())
}

func TestAlertsUpdate_NeedsAField(t *testing.T) {
	_, err := execute(t, "", "alerts", "update", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestAlertsDelete_BadID(t *testing.T) {
	_, err := execute(t, "", "alerts", "delete", "seven")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid alert id")
}

func TestRegister_OmitsEmailUnlessSet(t *testing.T) {
	svc := newFakeService(t)

	_, err := execute(t, "", "register", "-u", "ana", "-p", "secret")
	require.NoError(t, err)
	assert.NotContains(t, svc.lastBody.Load(), "email")

	_, err = execute(t, "", "register", "-u", "ana", "-p", "secret", "--email", "ana@example.com")
	require.NoError(t, err)
	assert.Contains(t, svc.lastBody.Load(), `"email":"ana@example.com"`)

	out, err := execute(t, "", "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "logged_out"`)
}

func TestCompare_RejectsReversedRange(t *testing.T) {
	_, err := execute(t, "", "compare", "GDP", "CPI", "--start", "2024-06-01", "--end", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is after")
}
