// Package formdata holds the pure form-payload routines: key-metric
// extraction and the tolerant change diff. Nothing here performs I/O and
// every function is deterministic for a given payload.
package formdata

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Metrics are the key numeric/date fields pulled out of a submitted form
// payload. Unmatched numeric fields stay 0; unmatched strings stay nil.
type Metrics struct {
	InputKg        float64
	OutputKg       float64
	YieldPercent   float64
	TotalQty       float64
	ProductionDate *string
	ProductionLine *string
	Moisture       *string
	NCRActual      float64
	PalletData     []map[string]any
}

// Form template families shape their payloads differently, so every metric
// carries an ordered list of candidate dot-paths. The first path yielding a
// parseable, non-empty value wins. Adding a new template family means adding
// paths here, not touching control flow.
var numericPaths = map[string][]string{
	"inputKg":      {"header.inputKg", "summary.inputKg", "inputKg", "materialInput.weightKg"},
	"outputKg":     {"header.outputKg", "summary.outputKg", "outputKg", "finishedGoods.weightKg"},
	"yieldPercent": {"header.yieldPercent", "summary.yieldPercent", "yieldPercent", "summary.yield"},
	"totalQty":     {"header.totalQty", "summary.totalQty", "totalQty", "summary.quantity"},
	"ncrActual":    {"header.ncrActual", "quality.ncrActual", "ncrActual", "quality.ncrCount"},
}

var stringPaths = map[string][]string{
	"productionDate": {"header.productionDate", "productionDate", "summary.date"},
	"productionLine": {"header.productionLine", "productionLine", "header.line"},
}

// moistureKeys are tried against each operationResults entry, in order.
var moistureKeys = []string{"moisture", "humidity", "moisturePercent"}

// palletIDKeys identify a populated pallet entry.
var palletIDKeys = []string{"palletNo", "palletId", "no"}

// Extract resolves all key metrics from an arbitrarily shaped form payload.
func Extract(form map[string]any) Metrics {
	m := Metrics{
		InputKg:      firstNumber(form, numericPaths["inputKg"]),
		OutputKg:     firstNumber(form, numericPaths["outputKg"]),
		YieldPercent: firstNumber(form, numericPaths["yieldPercent"]),
		TotalQty:     firstNumber(form, numericPaths["totalQty"]),
		NCRActual:    firstNumber(form, numericPaths["ncrActual"]),
	}

	if s, ok := firstString(form, stringPaths["productionDate"]); ok {
		m.ProductionDate = &s
	}
	if s, ok := firstString(form, stringPaths["productionLine"]); ok {
		m.ProductionLine = &s
	}
	if s, ok := scanMoisture(form); ok {
		m.Moisture = &s
	}
	m.PalletData = collectPallets(form)

	return m
}

// firstNumber walks the candidate paths and returns the first parseable
// numeric value, or 0.
func firstNumber(form map[string]any, paths []string) float64 {
	for _, path := range paths {
		if v, ok := lookupPath(form, path); ok {
			if n, ok := parseNumber(v); ok {
				return n
			}
		}
	}
	return 0
}

func firstString(form map[string]any, paths []string) (string, bool) {
	for _, path := range paths {
		if v, ok := lookupPath(form, path); ok {
			if s, ok := parseString(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// scanMoisture searches the list-typed operationResults sub-structure for the
// first populated humidity-like field.
func scanMoisture(form map[string]any) (string, bool) {
	results, ok := form["operationResults"].([]any)
	if !ok {
		return "", false
	}
	for _, entry := range results {
		row, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range moistureKeys {
			if s, ok := parseString(row[key]); ok {
				return s, true
			}
		}
	}
	return "", false
}

// collectPallets filters the pallet list down to entries carrying a
// non-blank identifier.
func collectPallets(form map[string]any) []map[string]any {
	var raw []any
	for _, path := range []string{"palletData", "pallets"} {
		if v, ok := lookupPath(form, path); ok {
			if list, ok := v.([]any); ok {
				raw = list
				break
			}
		}
	}
	if raw == nil {
		return nil
	}

	var pallets []map[string]any
	for _, entry := range raw {
		row, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range palletIDKeys {
			if _, ok := parseString(row[key]); ok {
				pallets = append(pallets, row)
				break
			}
		}
	}
	return pallets
}

// lookupPath resolves a dot-path through nested objects. Only map hops are
// followed; a missing or non-object intermediate fails the path.
func lookupPath(form map[string]any, path string) (any, bool) {
	var current any = form
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// parseNumber accepts float64, json.Number and numeric strings. Empty or
// unparseable values fail.
func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// parseString accepts non-blank strings and renders numbers; everything else
// fails.
func parseString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		return trimmed, trimmed != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
