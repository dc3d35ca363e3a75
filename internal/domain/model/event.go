// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Emission is published once per dropped coin. The async pipeline records it in
// the ledger and plays its chime.
type Emission struct {
	ID           string          `json:"id"`           // coin id, unique per emission
	SessionID    string          `json:"session_id"`   // session the coin was booked against
	Denomination string          `json:"denomination"` // catalog name, e.g. "penny"
	Value        decimal.Decimal `json:"value"`
	Gap          decimal.Decimal `json:"gap"`      // expected minus dispensed before the drop
	Delay        time.Duration   `json:"delay_ns"` // pause scheduled after the drop
	X            float64         `json:"x"`        // spawn position
	TS           time.Time       `json:"ts"`       // simulated time of the drop
}

// Tally aggregates one denomination's emissions.
type Tally struct {
	Denomination string          `json:"denomination" db:"denomination"`
	Count        int             `json:"count"        db:"count"`
	Total        decimal.Decimal `json:"total"        db:"total"`
}

// Sum adds the totals of every tally.
func Sum(tallies []Tally) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tallies {
		total = total.Add(t.Total)
	}
	return total
}
