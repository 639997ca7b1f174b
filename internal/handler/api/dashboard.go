package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"EconDash/internal/domain/models"
	"EconDash/internal/router"
	"EconDash/internal/service/ratelimit"
	"EconDash/internal/store"
	xhttp "EconDash/pkg/http"
	xlogger "EconDash/pkg/logger"
)

// Credential endpoints allow a short burst per client, then a few tries a
// minute.
const (
	loginBurst     = 5
	loginPerMinute = 6
)

// WatchStatus reports the alert watcher's last run.
type WatchStatus interface {
	LastRun() (time.Time, error)
}

// DashboardHandler serves the dashboard's JSON views. Every named route other
// than Login sits behind the session guard.
type DashboardHandler struct {
	logger     *xlogger.Logger
	session    *store.Session
	indicators *store.Indicators
	alerts     *store.Alerts
	watch      WatchStatus
	throttle   *ratelimit.Limiter
}

func NewDashboardHandler(
	logger *xlogger.Logger,
	session *store.Session,
	indicators *store.Indicators,
	alerts *store.Alerts,
	watch WatchStatus,
) *DashboardHandler {
	return &DashboardHandler{
		logger:     logger,
		session:    session,
		indicators: indicators,
		alerts:     alerts,
		watch:      watch,
		throttle:   ratelimit.New(loginBurst, loginPerMinute),
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	guard := router.RequireSession(h.session)
	e.GET("/login", h.Session, guard)
	limit := ratelimit.PerClient(h.throttle)
	e.POST("/login", h.Login, limit)
	e.POST("/logout", h.Logout)
	e.POST("/register", h.Register, limit)

	e.GET("/", h.Dashboard, guard)
	e.GET("/indicators", h.Indicators, guard)
	e.GET("/indicators/:code", h.IndicatorDetail, guard)
	e.GET("/analysis", h.Analysis, guard)
	e.POST("/analysis/compare", h.Compare, guard)
	e.GET("/decision", h.Decision, guard)

	g := e.Group("/alerts", guard)
	g.GET("", h.ListAlerts)
	g.POST("", h.CreateAlert)
	g.POST("/check", h.CheckAlerts)
	g.PATCH("/:id", h.UpdateAlert)
	g.DELETE("/:id", h.DeleteAlert)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) Session(c echo.Context) error {
	v := sessionView{
		LoggedIn: h.session.IsLoggedIn(),
		Status:   h.session.Status().String(),
		Subject:  h.session.Subject(),
		User:     h.session.User(),
	}
	if exp, ok := h.session.ExpiresAt(); ok {
		s := exp.UTC().Format(time.RFC3339)
		v.ExpiresAt = &s
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *DashboardHandler) Login(c echo.Context) error {
	req := &loginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.session.Login(c.Request().Context(), req.Username, req.Password); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return h.Session(c)
}

func (h *DashboardHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		h.logger.Error("logout: token slot not cleared", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *DashboardHandler) Register(c echo.Context) error {
	req := &registerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	user, err := h.session.Register(c.Request().Context(), req.Username, req.Password, req.Email)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.CreatedResponse(c, user)
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	h.indicators.FetchSummary(c.Request().Context())
	v := summaryView{Rows: h.indicators.Summary()}
	if err := h.indicators.Op(store.OpSummary).Err; err != nil {
		h.dropRejectedSession(c.Request().Context(), err)
		v.Error = xhttp.Message(err)
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *DashboardHandler) Indicators(c echo.Context) error {
	if err := h.indicators.FetchIndicators(c.Request().Context()); err != nil {
		return h.fail(c, err)
	}
	rows := h.indicators.Catalogue()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) IndicatorDetail(c echo.Context) error {
	req := &indicatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	data, err := h.indicators.FetchIndicatorData(c.Request().Context(), req.Code, req.ForceUpdate)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, data)
}

func (h *DashboardHandler) Analysis(c echo.Context) error {
	req := &analysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trend, err := h.indicators.FetchTrend(c.Request().Context(), req.Code)
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, trend)
}

func (h *DashboardHandler) Compare(c echo.Context) error {
	req := &compareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.indicators.Compare(c.Request().Context(), req.toModel())
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, json.RawMessage(out))
}

func (h *DashboardHandler) Decision(c echo.Context) error {
	ctx := c.Request().Context()
	h.indicators.FetchSummary(ctx)
	if err := h.alerts.FetchAlerts(ctx); err != nil {
		return h.fail(c, err)
	}

	v := decisionView{
		Summary: h.indicators.Summary(),
		Alerts:  h.alerts.Alerts(),
	}
	if err := h.indicators.Op(store.OpSummary).Err; err != nil {
		v.SummaryError = xhttp.Message(err)
	}
	if h.watch != nil {
		if at, err := h.watch.LastRun(); !at.IsZero() {
			s := at.UTC().Format(time.RFC3339)
			v.LastCheck = &s
			if err != nil {
				v.LastCheckErr = xhttp.Message(err)
			}
		}
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *DashboardHandler) ListAlerts(c echo.Context) error {
	if err := h.alerts.FetchAlerts(c.Request().Context()); err != nil {
		return h.fail(c, err)
	}
	rows := h.alerts.Alerts()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) CreateAlert(c echo.Context) error {
	req := &createAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rule, err := h.alerts.CreateAlert(c.Request().Context(), models.CreateAlertRequest{
		IndicatorCode: req.IndicatorCode,
		Condition:     req.Condition,
		Threshold:     req.Threshold,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.CreatedResponse(c, rule)
}

func (h *DashboardHandler) UpdateAlert(c echo.Context) error {
	req := &updateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rule, err := h.alerts.UpdateAlert(c.Request().Context(), req.ID, models.UpdateAlertRequest{
		Condition: req.Condition,
		Threshold: req.Threshold,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, rule)
}

func (h *DashboardHandler) DeleteAlert(c echo.Context) error {
	req := &alertIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.alerts.DeleteAlert(c.Request().Context(), req.ID); err != nil {
		return h.fail(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *DashboardHandler) CheckAlerts(c echo.Context) error {
	raw, err := h.alerts.CheckAlerts(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.SuccessResponse(c, json.RawMessage(raw))
}

// fail renders a store error. Validation failures are 400 and a response
// overtaken by a newer request for the same view is 409; a 401 from the
// service also ends the local session.
func (h *DashboardHandler) fail(c echo.Context, err error) error {
	if xhttp.IsValidation(err) {
		return xhttp.BadRequestResponse(c, xhttp.ValidationErrors(err))
	}
	if errors.Is(err, store.ErrStaleResponse) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"ERR_SUPERSEDED", "", "a newer request for this view finished first, retry", http.StatusConflict).WithError(err))
	}
	h.dropRejectedSession(c.Request().Context(), err)
	return xhttp.AppErrorResponse(c, err)
}

func (h *DashboardHandler) dropRejectedSession(ctx context.Context, err error) {
	if !xhttp.IsUnauthorized(err) || !h.session.IsLoggedIn() {
		return
	}
	h.logger.Info("service rejected the session token, logging out")
	if lerr := h.session.Logout(ctx); lerr != nil {
		h.logger.Error("logout after 401 failed", xlogger.Error(lerr))
	}
}
