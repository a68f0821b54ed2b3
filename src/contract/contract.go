package contract

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key builds the OSI-style option ticker used as the canonical contract
// identifier, e.g. AAPL250616C00150000: upper-cased underlying, YYMMDD
// expiration, C or P, and the strike in thousandths of a dollar as a fixed
// 8-digit field (price * 1000, so 150.000 -> 00150000).
func Key(symbol string, expiration time.Time, optionType string, strike float64) string {
	kind := "C"
	if strings.EqualFold(optionType, "PUT") || strings.EqualFold(optionType, "P") {
		kind = "P"
	}
	strikeField := int64(strike*1000 + 0.5)
	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(symbol), expiration.Format("060102"), kind, strikeField)
}

// Parsed is the decoded form of an OSI-style ticker.
type Parsed struct {
	Symbol     string
	Expiration time.Time
	OptionType string
	Strike     float64
}

// Parse decodes an OSI-style ticker. The strike and kind fields are fixed
// width from the right, so the underlying symbol is whatever remains.
func Parse(key string) (*Parsed, error) {
	// 6-digit date + 1-char kind + 8-digit strike, plus at least one symbol char
	if len(key) < 16 {
		return nil, fmt.Errorf("contract key too short: %q", key)
	}

	strikeField := key[len(key)-8:]
	kind := key[len(key)-9 : len(key)-8]
	dateField := key[len(key)-15 : len(key)-9]
	symbol := key[:len(key)-15]

	if symbol == "" {
		return nil, fmt.Errorf("contract key missing symbol: %q", key)
	}

	strikeRaw, err := strconv.ParseInt(strikeField, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid strike field %q: %w", strikeField, err)
	}

	expiration, err := time.Parse("060102", dateField)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration field %q: %w", dateField, err)
	}

	optionType := "CALL"
	switch kind {
	case "C":
	case "P":
		optionType = "PUT"
	default:
		return nil, fmt.Errorf("invalid option kind %q in key %q", kind, key)
	}

	return &Parsed{
		Symbol:     symbol,
		Expiration: expiration,
		OptionType: optionType,
		Strike:     float64(strikeRaw) / 1000,
	}, nil
}
