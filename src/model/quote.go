package model

import "time"

// Quote is one observed option quote keyed by its OSI-style contract ticker.
// Greeks and IV are opaque numbers from the external pricer; any of them may
// be absent. Quotes are cached but never authoritative.
type Quote struct {
	ContractKey     string    `json:"contract_key"`
	Price           float64   `json:"price"`
	Delta           *float64  `json:"delta,omitempty"`
	Theta           *float64  `json:"theta,omitempty"`
	Gamma           *float64  `json:"gamma,omitempty"`
	Vega            *float64  `json:"vega,omitempty"`
	IV              *float64  `json:"iv,omitempty"`
	UnderlyingPrice *float64  `json:"underlying_price,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}
