package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
)

// Indicator operation kinds.
const (
	OpSummary       = "summary"
	OpIndicatorData = "indicator_data"
	OpTrend         = "trend"
	OpIndicators    = "indicators"
	OpCompare       = "compare"
)

// Indicators caches the dashboard summary, the indicator catalogue, the
// currently viewed series and the latest trend.
type Indicators struct {
	base
	api drepo.IndicatorAPI

	summary    []models.IndicatorSummary
	indicators []models.Indicator
	current    *models.IndicatorData
	trend      *models.TrendAnalysis
}

// NewIndicators creates the indicator store.
func NewIndicators(api drepo.IndicatorAPI, opts ...Option) *Indicators {
	s := &Indicators{api: api}
	s.init("indicator", opts)
	return s
}

// FetchSummary replaces the summary with the dashboard response. Failures are
// recorded in Err and not returned; the previous summary stays on display.
func (s *Indicators) FetchSummary(ctx context.Context) {
	var rows []models.IndicatorSummary
	_ = s.run(OpSummary, true,
		func() error {
			var err error
			rows, err = s.api.DashboardSummary(ctx)
			return err
		},
		func() error {
			s.summary = rows
			return nil
		},
	)
}

// FetchIndicatorData loads the series for code and makes it the current one.
// forceUpdate asks the service to bypass its cache. On failure the current
// series is left untouched.
func (s *Indicators) FetchIndicatorData(ctx context.Context, code string, forceUpdate bool) (*models.IndicatorData, error) {
	var data *models.IndicatorData
	err := s.run(OpIndicatorData, true,
		func() error {
			var err error
			data, err = s.api.IndicatorData(ctx, code, forceUpdate)
			return err
		},
		func() error {
			s.current = data
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return cloneData(data), nil
}

// FetchTrend loads and stores the trend analysis for code. A failure keeps
// the previous trend.
func (s *Indicators) FetchTrend(ctx context.Context, code string) (*models.TrendAnalysis, error) {
	var trend *models.TrendAnalysis
	err := s.run(OpTrend, true,
		func() error {
			var err error
			trend, err = s.api.Trend(ctx, code)
			return err
		},
		func() error {
			s.trend = trend
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return cloneTrend(trend), nil
}

// FetchIndicators replaces the indicator catalogue.
func (s *Indicators) FetchIndicators(ctx context.Context) error {
	var list *models.IndicatorList
	return s.run(OpIndicators, true,
		func() error {
			var err error
			list, err = s.api.ListIndicators(ctx)
			return err
		},
		func() error {
			s.indicators = list.Items
			return nil
		},
	)
}

// Compare returns the service comparison for the requested codes. Nothing is
// cached.
func (s *Indicators) Compare(ctx context.Context, req models.CompareRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.run(OpCompare, false, func() error {
		if err := validate.StructCtx(ctx, &req); err != nil {
			return fmt.Errorf("compare: %w", err)
		}
		var err error
		out, err = s.api.Compare(ctx, &req)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Summary returns a copy of the dashboard rows.
func (s *Indicators) Summary() []models.IndicatorSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.IndicatorSummary, len(s.summary))
	for i, row := range s.summary {
		row.Value = clonePtr(row.Value)
		row.Change = clonePtr(row.Change)
		row.Unit = clonePtr(row.Unit)
		row.LatestDate = clonePtr(row.LatestDate)
		out[i] = row
	}
	return out
}

// Catalogue returns a copy of the indicator list.
func (s *Indicators) Catalogue() []models.Indicator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Indicator, len(s.indicators))
	for i, ind := range s.indicators {
		ind.Unit = clonePtr(ind.Unit)
		ind.Description = clonePtr(ind.Description)
		ind.UpdateFrequency = clonePtr(ind.UpdateFrequency)
		out[i] = ind
	}
	return out
}

// Current returns the currently viewed series, or nil.
func (s *Indicators) Current() *models.IndicatorData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneData(s.current)
}

// Trend returns the last fetched trend, or nil.
func (s *Indicators) Trend() *models.TrendAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTrend(s.trend)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneData(d *models.IndicatorData) *models.IndicatorData {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Unit = clonePtr(d.Unit)
	cp.Points = slices.Clone(d.Points)
	cp.LatestValue = clonePtr(d.LatestValue)
	cp.ChangePercent = clonePtr(d.ChangePercent)
	return &cp
}

func cloneTrend(t *models.TrendAnalysis) *models.TrendAnalysis {
	if t == nil {
		return nil
	}
	cp := *t
	cp.MovingAverage7 = clonePtr(t.MovingAverage7)
	cp.MovingAverage30 = clonePtr(t.MovingAverage30)
	if t.Prediction != nil {
		p := *t.Prediction
		p.PredictedValue = clonePtr(t.Prediction.PredictedValue)
		cp.Prediction = &p
	}
	return &cp
}
