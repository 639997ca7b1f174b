package models

// Indicator is one entry of the indicator catalogue.
type Indicator struct {
	ID              int64   `json:"id"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Unit            *string `json:"unit,omitempty"`
	Description     *string `json:"description,omitempty"`
	UpdateFrequency *string `json:"update_frequency,omitempty"`
	DataSource      string  `json:"data_source"`
	IsActive        bool    `json:"is_active"`
}

// IndicatorList is the GET /api/indicators envelope.
type IndicatorList struct {
	Total int         `json:"total"`
	Items []Indicator `json:"items"`
}

// IndicatorSummary is a dashboard row.
type IndicatorSummary struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Value      *float64 `json:"value,omitempty"`
	Change     *float64 `json:"change,omitempty"`
	Trend      string   `json:"trend"`
	Unit       *string  `json:"unit,omitempty"`
	LatestDate *string  `json:"latest_date,omitempty"`
}

// DataPoint is one observation of an indicator series.
type DataPoint struct {
	Date  Timestamp `json:"date"`
	Value float64   `json:"value"`
}

// IndicatorData is the series of a single indicator.
type IndicatorData struct {
	IndicatorCode string      `json:"indicator_code"`
	IndicatorName string      `json:"indicator_name"`
	Unit          *string     `json:"unit,omitempty"`
	Points        []DataPoint `json:"data"`
	LatestValue   *float64    `json:"latest_value,omitempty"`
	ChangePercent *float64    `json:"change_percent,omitempty"`
}

// Prediction is the server-side forecast attached to a trend.
type Prediction struct {
	PredictedValue *float64 `json:"predicted,omitempty"`
	Trend          string   `json:"trend"`
	Confidence     string   `json:"confidence"`
}

// TrendAnalysis is computed by the service and stored verbatim.
type TrendAnalysis struct {
	IndicatorCode   string      `json:"indicator_code"`
	Trend           string      `json:"trend"`
	ChangePercent   float64     `json:"change_percent"`
	MovingAverage7  *float64    `json:"ma_7,omitempty"`
	MovingAverage30 *float64    `json:"ma_30,omitempty"`
	Prediction      *Prediction `json:"prediction,omitempty"`
}

// CompareRequest is the body of POST /api/indicators/compare. Dates are
// YYYY-MM-DD.
type CompareRequest struct {
	Codes     []string `json:"codes" validate:"required,min=1,dive,required"`
	StartDate *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}
