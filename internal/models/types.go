package models

import (
	"encoding/json"
	"time"
)

// Status is the classification assigned to a ticket.
type Status string

const (
	StatusValid      Status = "valid"
	StatusSuspicious Status = "suspicious"
	StatusFraudulent Status = "fraudulent"
)

// AllStatuses is the ordered list of ticket classifications.
var AllStatuses = []Status{StatusValid, StatusSuspicious, StatusFraudulent}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusValid, StatusSuspicious, StatusFraudulent:
		return true
	}
	return false
}

// LevelSnapshot is one upstream reading of every cauldron at a point in time.
type LevelSnapshot struct {
	Timestamp string             `json:"timestamp"`
	Levels    map[string]float64 `json:"cauldron_levels"`
}

// LevelSample is a single cauldron level observation.
type LevelSample struct {
	CauldronID string    `json:"cauldron_id"`
	Timestamp  time.Time `json:"timestamp"`
	Level      float64   `json:"level"`
}

// Ticket is a courier's claimed collection from a cauldron.
type Ticket struct {
	TicketID       string  `json:"ticket_id"`
	CauldronID     string  `json:"cauldron_id"`
	CourierID      string  `json:"courier_id"`
	Date           string  `json:"date"`
	ReportedAmount float64 `json:"amount_collected"`
}

// CauldronInfo is display metadata for a cauldron.
type CauldronInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	MaxVolume float64 `json:"max_volume"`
}

// CourierInfo is display metadata for a courier.
type CourierInfo struct {
	CourierID string  `json:"courier_id"`
	Name      string  `json:"name"`
	Capacity  float64 `json:"max_carrying_capacity,omitempty"`
}

// Metadata is static cauldron/courier information used only for display.
// Raw holds the document as loaded; when set it is what gets serialized, so
// display-only sections (market, network) pass through untouched.
type Metadata struct {
	Cauldrons []CauldronInfo  `json:"cauldrons"`
	Couriers  []CourierInfo   `json:"couriers"`
	Raw       json.RawMessage `json:"-"`
}

// MarshalJSON emits Raw when present.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type plain Metadata
	return json.Marshal(plain(m))
}

// Dataset is the immutable input snapshot for one analysis pass.
type Dataset struct {
	Snapshots []LevelSnapshot
	Tickets   []Ticket
	Metadata  *Metadata
	FetchedAt time.Time
	Source    string
}

// DrainEvent is a detected fall in a cauldron's level within one day.
type DrainEvent struct {
	CauldronID      string    `json:"cauldron_id"`
	Day             string    `json:"day"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	StartLevel      float64   `json:"start_level"`
	EndLevel        float64   `json:"end_level"`
	DrainAmount     float64   `json:"drain_amount"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// MatchedDrain is the drain attached to a validation result.
type MatchedDrain struct {
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationMinutes float64 `json:"duration_minutes"`
	VisibleDrain    float64 `json:"visible_drain"`
	TotalExpected   float64 `json:"total_expected"`
}

// ValidationResult is the outcome of checking one ticket.
type ValidationResult struct {
	TicketID       string        `json:"ticket_id"`
	CauldronID     string        `json:"cauldron_id"`
	CourierID      string        `json:"courier_id"`
	Date           string        `json:"date"`
	ReportedAmount float64       `json:"reported_amount"`
	ExpectedAmount float64       `json:"expected_amount"`
	Difference     float64       `json:"difference"`
	PercentError   float64       `json:"percent_error"`
	Status         Status        `json:"status"`
	MatchedDrain   *MatchedDrain `json:"matched_drain"`
	Reason         string        `json:"reason"`
	TicketsThisDay int           `json:"tickets_this_day"`
	FillRateUsed   float64       `json:"fill_rate_used"`
}

// TrustRecord aggregates a courier's ticket outcomes.
type TrustRecord struct {
	CourierID         string  `json:"courier_id"`
	TrustScore        float64 `json:"trust_score"`
	TotalTickets      int     `json:"total_tickets"`
	ValidTickets      int     `json:"valid_tickets"`
	SuspiciousTickets int     `json:"suspicious_tickets"`
	FraudulentTickets int     `json:"fraudulent_tickets"`
	TotalFraudAmount  float64 `json:"total_fraud_amount"`
	AccuracyPercent   float64 `json:"accuracy_percent"`
}

// Summary holds report-wide counts.
type Summary struct {
	TotalTickets    int     `json:"total_tickets"`
	ValidCount      int     `json:"valid_count"`
	SuspiciousCount int     `json:"suspicious_count"`
	FraudulentCount int     `json:"fraudulent_count"`
	FraudRate       float64 `json:"fraud_rate"`
}

// AnalysisReport is the immutable result of one analysis pass.
type AnalysisReport struct {
	Summary     Summary            `json:"summary"`
	Tickets     []ValidationResult `json:"tickets"`
	TrustScores []TrustRecord      `json:"witch_trust_scores"`
	FillRates   map[string]float64 `json:"cauldron_fill_rates"`
	Flagged     []ValidationResult `json:"flagged_tickets"`
	Metadata    *Metadata          `json:"background,omitempty"`

	// FetchedAt records when the input was pulled. It is provenance only:
	// a refetch of unchanged upstream data moves it and nothing else.
	FetchedAt string `json:"fetched_at,omitempty"`
}

// CauldronView is a cauldron's metadata enriched with its estimated fill rate.
type CauldronView struct {
	CauldronInfo
	FillRate float64 `json:"fill_rate"`
}

// APIError is the standard error response.
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains error code and message.
type APIErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
