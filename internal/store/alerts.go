package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
)

// Alert operation kinds.
const (
	OpFetchAlerts = "fetch_alerts"
	OpCreateAlert = "create_alert"
	OpUpdateAlert = "update_alert"
	OpDeleteAlert = "delete_alert"
	OpCheckAlerts = "check_alerts"
)

// Alerts owns the user's alert rules, kept as a set keyed by rule id. The
// list only changes after the service confirms a mutation.
type Alerts struct {
	base
	api drepo.AlertAPI

	alerts []models.AlertRule
}

// NewAlerts creates the alert store.
func NewAlerts(api drepo.AlertAPI, opts ...Option) *Alerts {
	s := &Alerts{api: api}
	s.init("alert", opts)
	return s
}

// FetchAlerts replaces the list with the first page of rules.
func (s *Alerts) FetchAlerts(ctx context.Context) error {
	var list *models.AlertList
	return s.run(OpFetchAlerts, true,
		func() error {
			var err error
			list, err = s.api.ListAlerts(ctx, models.DefaultAlertSkip, models.DefaultAlertLimit)
			return err
		},
		func() error {
			s.alerts = dedupe(list.Items)
			return nil
		},
	)
}

// CreateAlert sends req and adds the rule returned by the service.
func (s *Alerts) CreateAlert(ctx context.Context, req models.CreateAlertRequest) (*models.AlertRule, error) {
	var rule *models.AlertRule
	err := s.run(OpCreateAlert, false,
		func() error {
			if err := validate.StructCtx(ctx, &req); err != nil {
				return fmt.Errorf("create alert: %w", err)
			}
			var err error
			rule, err = s.api.CreateAlert(ctx, &req)
			return err
		},
		func() error {
			s.upsert(*rule)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	cp := cloneRule(*rule)
	return &cp, nil
}

// UpdateAlert applies a partial update and replaces the local entry.
func (s *Alerts) UpdateAlert(ctx context.Context, id int64, req models.UpdateAlertRequest) (*models.AlertRule, error) {
	var rule *models.AlertRule
	err := s.run(OpUpdateAlert, false,
		func() error {
			if err := validate.StructCtx(ctx, &req); err != nil {
				return fmt.Errorf("update alert: %w", err)
			}
			var err error
			rule, err = s.api.UpdateAlert(ctx, id, &req)
			return err
		},
		func() error {
			s.upsert(*rule)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	cp := cloneRule(*rule)
	return &cp, nil
}

// DeleteAlert removes the rule on the service, then locally.
func (s *Alerts) DeleteAlert(ctx context.Context, id int64) error {
	return s.run(OpDeleteAlert, false,
		func() error {
			return s.api.DeleteAlert(ctx, id)
		},
		func() error {
			s.alerts = slices.DeleteFunc(s.alerts, func(a models.AlertRule) bool { return a.ID == id })
			return nil
		},
	)
}

// CheckAlerts asks the service to evaluate all active rules and returns its
// raw answer. Local rules are not refreshed; callers that need the new
// last-triggered times call FetchAlerts.
func (s *Alerts) CheckAlerts(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.run(OpCheckAlerts, false, func() error {
		var err error
		raw, err = s.api.CheckAlerts(ctx)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Alerts returns a copy of the rule list.
func (s *Alerts) Alerts() []models.AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AlertRule, len(s.alerts))
	for i, a := range s.alerts {
		out[i] = cloneRule(a)
	}
	return out
}

// Get returns the rule with id.
func (s *Alerts) Get(id int64) (models.AlertRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.alerts, func(a models.AlertRule) bool { return a.ID == id })
	if i < 0 {
		return models.AlertRule{}, false
	}
	return cloneRule(s.alerts[i]), true
}

func cloneRule(r models.AlertRule) models.AlertRule {
	r.LastTriggered = clonePtr(r.LastTriggered)
	return r
}

// upsert replaces the rule with the same id or appends it. Caller holds mu.
func (s *Alerts) upsert(rule models.AlertRule) {
	if i := slices.IndexFunc(s.alerts, func(a models.AlertRule) bool { return a.ID == rule.ID }); i >= 0 {
		s.alerts[i] = rule
		return
	}
	s.alerts = append(s.alerts, rule)
}

func dedupe(items []models.AlertRule) []models.AlertRule {
	out := make([]models.AlertRule, 0, len(items))
	seen := make(map[int64]int, len(items))
	for _, it := range items {
		if i, ok := seen[it.ID]; ok {
			out[i] = it
			continue
		}
		seen[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
