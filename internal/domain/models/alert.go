package models

import (
	"encoding/json"
	"fmt"
)

// Alert conditions evaluated by the service.
const (
	ConditionAbove  = "above"
	ConditionBelow  = "below"
	ConditionEquals = "equals"
)

// Default page window used when listing alert rules.
const (
	DefaultAlertSkip  = 0
	DefaultAlertLimit = 100
)

// AlertRule is a threshold rule owned by the logged in user. ID is assigned
// by the service.
type AlertRule struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	IndicatorCode string     `json:"indicator_code"`
	Condition     string     `json:"condition"`
	Threshold     float64    `json:"threshold"`
	IsActive      bool       `json:"is_active"`
	LastTriggered *Timestamp `json:"last_triggered,omitempty"`
	CreatedAt     Timestamp  `json:"created_at"`
}

// AlertList is the GET /api/alerts envelope.
type AlertList struct {
	Total int         `json:"total"`
	Items []AlertRule `json:"items"`
}

// CreateAlertRequest holds the only fields a client may set on creation.
type CreateAlertRequest struct {
	IndicatorCode string  `json:"indicator_code" validate:"required"`
	Condition     string  `json:"condition" validate:"required,oneof=above below equals"`
	Threshold     float64 `json:"threshold"`
}

// UpdateAlertRequest is a partial update; nil fields are not sent.
type UpdateAlertRequest struct {
	Condition *string  `json:"condition,omitempty" validate:"omitempty,oneof=above below equals"`
	Threshold *float64 `json:"threshold,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// AlertTrigger is one entry of the check result.
type AlertTrigger struct {
	AlertID       int64     `json:"alert_id"`
	IndicatorCode string    `json:"indicator_code"`
	Condition     string    `json:"condition"`
	Threshold     float64   `json:"threshold"`
	CurrentValue  float64   `json:"current_value"`
	TriggeredAt   Timestamp `json:"triggered_at"`
}

// DecodeTriggers interprets a raw check result as a list of triggers.
func DecodeTriggers(raw json.RawMessage) ([]AlertTrigger, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var triggers []AlertTrigger
	if err := json.Unmarshal(raw, &triggers); err != nil {
		return nil, fmt.Errorf("decode alert triggers: %w", err)
	}
	return triggers, nil
}
