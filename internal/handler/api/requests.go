package api

import "EconDash/internal/domain/models"

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type registerRequest struct {
	Username string  `json:"username" form:"username" validate:"required"`
	Password string  `json:"password" form:"password" validate:"required"`
	Email    *string `json:"email,omitempty" form:"email"`
}

type indicatorRequest struct {
	Code        string `param:"code" validate:"required"`
	ForceUpdate bool   `query:"force_update"`
}

type analysisRequest struct {
	Code string `query:"code" validate:"required"`
}

type compareRequest struct {
	Codes     []string `json:"codes" validate:"required,min=1,dive,required"`
	StartDate *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *compareRequest) toModel() models.CompareRequest {
	return models.CompareRequest{Codes: r.Codes, StartDate: r.StartDate, EndDate: r.EndDate}
}

type createAlertRequest struct {
	IndicatorCode string  `json:"indicator_code" validate:"required"`
	Condition     string  `json:"condition" default:"above" validate:"oneof=above below equals"`
	Threshold     float64 `json:"threshold"`
}

type updateAlertRequest struct {
	ID        int64    `param:"id" validate:"gt=0"`
	Condition *string  `json:"condition,omitempty" validate:"omitempty,oneof=above below equals"`
	Threshold *float64 `json:"threshold,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

type alertIDRequest struct {
	ID int64 `param:"id" validate:"gt=0"`
}

type sessionView struct {
	LoggedIn  bool         `json:"logged_in"`
	Status    string       `json:"status"`
	Subject   string       `json:"subject,omitempty"`
	ExpiresAt *string      `json:"expires_at,omitempty"`
	User      *models.User `json:"user,omitempty"`
}

type summaryView struct {
	Rows  []models.IndicatorSummary `json:"rows"`
	Error string                    `json:"error,omitempty"`
}

type decisionView struct {
	Summary      []models.IndicatorSummary `json:"summary"`
	Alerts       []models.AlertRule        `json:"alerts"`
	LastCheck    *string                   `json:"last_check,omitempty"`
	LastCheckErr string                    `json:"last_check_error,omitempty"`
	SummaryError string                    `json:"summary_error,omitempty"`
}
