package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// groupKey identifies the tickets filed against one cauldron on one day.
type groupKey struct {
	cauldronID string
	day        string
}

// Validator checks tickets against detected drains.
// It is built once per analysis pass over the full ticket list, so every
// Validate call sees the same co-reporting tickets. Not safe for concurrent use.
type Validator struct {
	params   Params
	detector *DrainDetector
	series   map[string]*Series
	rates    map[string]float64
	groups   map[groupKey][]models.Ticket

	// local strategy only: ticket ID -> index into the day's drains.
	assignments map[string]int
}

// NewValidator prepares a validator for the given ticket population.
// Malformed tickets are left out of the co-reporting groups; Validate
// reports them individually.
func NewValidator(series map[string]*Series, rates map[string]float64, tickets []models.Ticket, p Params) *Validator {
	v := &Validator{
		params:      p,
		detector:    NewDrainDetector(p),
		series:      series,
		rates:       rates,
		groups:      make(map[groupKey][]models.Ticket),
		assignments: make(map[string]int),
	}

	for _, t := range tickets {
		day, err := checkTicket(t)
		if err != nil {
			continue
		}
		key := groupKey{cauldronID: t.CauldronID, day: day}
		v.groups[key] = append(v.groups[key], t)
	}

	if p.Strategy == StrategyLocal {
		for key, group := range v.groups {
			drains := v.detector.FindDrains(series[key.cauldronID], key.day)
			for id, idx := range assignDrains(group, drains, v.rateFor(key.cauldronID)) {
				v.assignments[id] = idx
			}
		}
	}

	return v
}

// Validate classifies a single ticket. An error means the ticket itself is
// malformed; the caller should record a degraded result and carry on.
func (v *Validator) Validate(t models.Ticket) (models.ValidationResult, error) {
	day, err := checkTicket(t)
	if err != nil {
		return models.ValidationResult{}, err
	}

	rate := v.rateFor(t.CauldronID)
	key := groupKey{cauldronID: t.CauldronID, day: day}
	n := len(v.groups[key])
	if n == 0 {
		n = 1
	}

	res := models.ValidationResult{
		TicketID:       t.TicketID,
		CauldronID:     t.CauldronID,
		CourierID:      t.CourierID,
		Date:           t.Date,
		ReportedAmount: t.ReportedAmount,
		TicketsThisDay: n,
		FillRateUsed:   rate,
	}

	drains := v.detector.FindDrains(v.series[t.CauldronID], day)
	if len(drains) == 0 {
		v.classifyWithoutDrain(&res)
		return res, nil
	}

	var drain models.DrainEvent
	var total, expected float64
	if v.params.Strategy == StrategyLocal {
		idx, ok := v.assignments[t.TicketID]
		if !ok || idx >= len(drains) {
			idx = closestDrain(drains, rate, t.ReportedAmount)
		}
		drain = drains[idx]
		total = ExpectedCollection(&drain, rate)
		expected = total
	} else {
		drain = drains[0]
		total = ExpectedCollection(&drain, rate)
		expected = total / float64(n)
	}

	res.ExpectedAmount = expected
	res.Difference = t.ReportedAmount - expected
	res.PercentError = percentError(res.Difference, expected)
	res.Status = v.classify(res.PercentError)
	res.Reason = drainReason(res.Status, res.Difference, res.PercentError, n, v.params.Strategy)
	res.MatchedDrain = &models.MatchedDrain{
		StartTime:       drain.StartTime.Format(time.RFC3339),
		EndTime:         drain.EndTime.Format(time.RFC3339),
		DurationMinutes: drain.DurationMinutes,
		VisibleDrain:    drain.DrainAmount,
		TotalExpected:   total,
	}

	return res, nil
}

// checkTicket rejects tickets that cannot be reconciled and returns the day key.
func checkTicket(t models.Ticket) (string, error) {
	if math.IsNaN(t.ReportedAmount) || math.IsInf(t.ReportedAmount, 0) || t.ReportedAmount < 0 {
		return "", fmt.Errorf("%w: %s reported amount %v", config.ErrInvalidTicket, t.TicketID, t.ReportedAmount)
	}
	day, err := ParseDay(t.Date)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", config.ErrInvalidTicket, t.TicketID, err)
	}
	return day, nil
}

// classifyWithoutDrain applies the capacity rule: anything up to one vessel's
// capacity gets the benefit of the doubt, anything above is impossible.
func (v *Validator) classifyWithoutDrain(res *models.ValidationResult) {
	capacity := v.params.VesselCapacity
	if res.ReportedAmount <= capacity {
		res.ExpectedAmount = res.ReportedAmount
		res.Status = models.StatusValid
		res.Reason = "Amount within reasonable limits (no drain detected in data)"
		return
	}

	res.ExpectedAmount = capacity
	res.Difference = res.ReportedAmount - capacity
	res.PercentError = res.Difference / capacity * 100
	res.Status = models.StatusFraudulent
	res.Reason = fmt.Sprintf("Exceeds cauldron capacity: reported %.1f units (max is %.0f)", res.ReportedAmount, capacity)
}

func (v *Validator) classify(pct float64) models.Status {
	switch {
	case pct < v.params.ValidThresholdPct:
		return models.StatusValid
	case pct < v.params.FraudThresholdPct:
		return models.StatusSuspicious
	default:
		return models.StatusFraudulent
	}
}

func (v *Validator) rateFor(cauldronID string) float64 {
	if r, ok := v.rates[cauldronID]; ok {
		return r
	}
	return v.params.FallbackFillRate
}

// DegradedResult is recorded for a ticket that could not be validated.
func DegradedResult(t models.Ticket, err error) models.ValidationResult {
	diff := t.ReportedAmount
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		diff = 0
	}
	return models.ValidationResult{
		TicketID:       t.TicketID,
		CauldronID:     t.CauldronID,
		CourierID:      t.CourierID,
		Date:           t.Date,
		ReportedAmount: diff,
		Difference:     diff,
		PercentError:   100,
		Status:         models.StatusFraudulent,
		Reason:         "No drain data: " + err.Error(),
		TicketsThisDay: 1,
	}
}

func percentError(diff, expected float64) float64 {
	if expected <= 0 {
		return 100
	}
	return math.Abs(diff) / expected * 100
}

func drainReason(status models.Status, diff, pct float64, n int, strategy Strategy) string {
	var direction string
	switch {
	case diff > 0:
		direction = fmt.Sprintf("over-reported by %.2f units (+%.1f%%)", diff, pct)
	case diff < 0:
		direction = fmt.Sprintf("under-reported by %.2f units (-%.1f%%)", -diff, pct)
	default:
		direction = "matches expected exactly"
	}

	var reason string
	switch status {
	case models.StatusValid:
		reason = "Reported amount within tolerance: " + direction
	case models.StatusSuspicious:
		reason = "Suspicious: " + direction
	default:
		if diff > 0 {
			reason = "FRAUD: " + direction + " - claim inflated"
		} else {
			reason = "FRAUD: " + direction + " - likely skimming"
		}
	}

	if n > 1 {
		if strategy == StrategyLocal {
			reason += fmt.Sprintf(" (%d couriers reported this cauldron today, matched to own drain)", n)
		} else {
			reason += fmt.Sprintf(" (drain split across %d co-reporting couriers)", n)
		}
	}
	return reason
}

// assignDrains pairs each ticket with its own drain, closest expected
// collection first. Drains are used at most once; tickets left over when a day
// has more tickets than drains are not assigned.
func assignDrains(tickets []models.Ticket, drains []models.DrainEvent, rate float64) map[string]int {
	type pair struct {
		ticket int
		drain  int
		err    float64
	}

	pairs := make([]pair, 0, len(tickets)*len(drains))
	for ti, t := range tickets {
		for di := range drains {
			exp := ExpectedCollection(&drains[di], rate)
			pairs = append(pairs, pair{ticket: ti, drain: di, err: math.Abs(exp - t.ReportedAmount)})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].err != pairs[j].err {
			return pairs[i].err < pairs[j].err
		}
		if tickets[pairs[i].ticket].TicketID != tickets[pairs[j].ticket].TicketID {
			return tickets[pairs[i].ticket].TicketID < tickets[pairs[j].ticket].TicketID
		}
		return pairs[i].drain < pairs[j].drain
	})

	out := make(map[string]int, len(tickets))
	usedDrain := make(map[int]bool, len(drains))
	for _, p := range pairs {
		id := tickets[p.ticket].TicketID
		if _, done := out[id]; done || usedDrain[p.drain] {
			continue
		}
		out[id] = p.drain
		usedDrain[p.drain] = true
	}
	return out
}

func closestDrain(drains []models.DrainEvent, rate, reported float64) int {
	best, bestErr := 0, math.Inf(1)
	for i := range drains {
		e := math.Abs(ExpectedCollection(&drains[i], rate) - reported)
		if e < bestErr {
			best, bestErr = i, e
		}
	}
	return best
}
