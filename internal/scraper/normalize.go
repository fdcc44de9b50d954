package scraper

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"jmorrell/tyrescraper/pkg/errors"
)

// seasonVocabulary maps source-native season labels onto the closed reporting
// vocabulary. Keys are compared case-insensitively; unmapped values pass
// through unchanged.
var seasonVocabulary = map[string]string{
	"vinterdäck": "Winter",
	"sommardäck": "Summer",
	"winter":     "Winter",
	"summer":     "Summer",
	"all season": "All-season",
	"all-season": "All-season",
}

// sekToGBPRate is a fixed conversion rate, an accepted approximation for
// sources that price in SEK. Deliberately not a live rate lookup so results
// stay comparable across runs.
var sekToGBPRate = decimal.RequireFromString("0.081")

// capitalize upper-cases the first rune and lower-cases the rest,
// matching how the site labels are tidied elsewhere in the pipeline.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeSeason maps a source season label onto the closed vocabulary.
// Idempotent: normalizing an already-normalized value yields the same value.
func NormalizeSeason(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "unknown"
	}
	if mapped, ok := seasonVocabulary[strings.ToLower(trimmed)]; ok {
		return mapped
	}
	return trimmed
}

// joinSizeTokens joins the first two whitespace tokens of a split size string
// into one "W/AR RDD" style string.
func joinSizeTokens(raw string) (string, error) {
	tokens := strings.Fields(raw)
	if len(tokens) < 2 {
		return "", errors.NewExtraction("", "size text has fewer than two tokens", nil)
	}
	return tokens[0] + " " + tokens[1], nil
}

// minimumPrice selects the minimum advertised price from a pricing-tier
// payload, never a context-dependent personalized tier.
func minimumPrice(rawJSON string) (string, error) {
	var payload struct {
		MinimumPrice string `json:"minimum_price"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &payload); err != nil {
		return "", errors.NewExtraction("", "malformed pricing payload", err)
	}
	price := strings.TrimSpace(payload.MinimumPrice)
	if price == "" {
		return "", errors.NewExtraction("", "pricing payload has no minimum_price", nil)
	}
	return price, nil
}

// ConvertSEKToGBP converts a SEK amount to GBP at the fixed rate,
// rendered with two decimal places.
func ConvertSEKToGBP(sek string) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(sek))
	if err != nil {
		return "", errors.NewExtraction("", "unparseable SEK amount", err)
	}
	return amount.Mul(sekToGBPRate).StringFixed(2), nil
}
