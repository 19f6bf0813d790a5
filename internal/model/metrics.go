package model

import "github.com/shopspring/decimal"

// StatusTotal is the order count and summed value of one pipeline state.
type StatusTotal struct {
	Status Status
	Count  int
	Value  decimal.Decimal
}

// FinancialMetrics summarises order values by pipeline stage.
type FinancialMetrics struct {
	Placed     decimal.Decimal `json:"placed"`
	InTransit  decimal.Decimal `json:"inTransit"`
	Received   decimal.Decimal `json:"received"`
	Pending    decimal.Decimal `json:"pending"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Counts     map[Status]int  `json:"counts"`
}

// ComputeMetrics folds per-status totals into FinancialMetrics.
//
// Manufacturing, in-transit and customs collapse into InTransit; Pending is
// Placed plus InTransit. Totals for unknown statuses still count towards
// GrandTotal but not towards any bucket. Counts always has all five states.
func ComputeMetrics(totals []StatusTotal) FinancialMetrics {
	m := FinancialMetrics{
		Placed:     decimal.Zero,
		InTransit:  decimal.Zero,
		Received:   decimal.Zero,
		GrandTotal: decimal.Zero,
		Counts:     make(map[Status]int, len(Statuses)),
	}
	for _, s := range Statuses {
		m.Counts[s] = 0
	}

	for _, t := range totals {
		m.GrandTotal = m.GrandTotal.Add(t.Value)
		if t.Status.Valid() {
			m.Counts[t.Status] += t.Count
		}
		switch t.Status {
		case StatusPlaced:
			m.Placed = m.Placed.Add(t.Value)
		case StatusManufacturing, StatusInTransit, StatusCustoms:
			m.InTransit = m.InTransit.Add(t.Value)
		case StatusReceived:
			m.Received = m.Received.Add(t.Value)
		}
	}

	m.Pending = m.Placed.Add(m.InTransit)
	return m
}
