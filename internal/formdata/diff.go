package formdata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// numericEpsilon suppresses false positives from "5" vs "5.00" style
// representation drift across heterogeneous form inputs.
const numericEpsilon = 1e-9

// maxDiffValueLen caps rendered values so one long free-text field cannot
// drown the activity log. The set of reported paths is never truncated.
const maxDiffValueLen = 80

// skippedKeys are bookkeeping timestamps that change on every save and would
// otherwise pollute every diff. Skipped at every depth.
var skippedKeys = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
}

// Diff produces an ordered, human-readable change summary between two form
// payload snapshots as "path: old -> new" lines. Every actually-changed leaf
// produces exactly one line; equal payloads produce none.
func Diff(oldPayload, newPayload map[string]any) []string {
	var lines []string
	diffObjects("", oldPayload, newPayload, &lines)
	return lines
}

func diffObjects(prefix string, oldObj, newObj map[string]any, lines *[]string) {
	keys := unionKeys(oldObj, newObj)

	for _, key := range keys {
		if skippedKeys[key] {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		oldVal, inOld := oldObj[key]
		newVal, inNew := newObj[key]

		switch {
		case !inOld:
			*lines = append(*lines, fmt.Sprintf("%s: (none) -> %s", path, render(newVal)))
		case !inNew:
			*lines = append(*lines, fmt.Sprintf("%s: %s -> (removed)", path, render(oldVal)))
		default:
			diffValues(path, oldVal, newVal, lines)
		}
	}
}

func diffValues(path string, oldVal, newVal any, lines *[]string) {
	oldObj, oldIsObj := oldVal.(map[string]any)
	newObj, newIsObj := newVal.(map[string]any)
	if oldIsObj && newIsObj {
		diffObjects(path, oldObj, newObj, lines)
		return
	}

	oldArr, oldIsArr := oldVal.([]any)
	newArr, newIsArr := newVal.([]any)
	if oldIsArr && newIsArr {
		diffArrays(path, oldArr, newArr, lines)
		return
	}

	if !leafEqual(oldVal, newVal) {
		*lines = append(*lines, fmt.Sprintf("%s: %s -> %s", path, render(oldVal), render(newVal)))
	}
}

// diffArrays recurses index-by-index over the shared prefix and reports
// added/removed elements at the tail when lengths differ.
func diffArrays(path string, oldArr, newArr []any, lines *[]string) {
	shared := len(oldArr)
	if len(newArr) < shared {
		shared = len(newArr)
	}

	for i := 0; i < shared; i++ {
		diffValues(fmt.Sprintf("%s[%d]", path, i), oldArr[i], newArr[i], lines)
	}
	for i := shared; i < len(newArr); i++ {
		*lines = append(*lines, fmt.Sprintf("%s[%d]: (none) -> %s", path, i, render(newArr[i])))
	}
	for i := shared; i < len(oldArr); i++ {
		*lines = append(*lines, fmt.Sprintf("%s[%d]: %s -> (removed)", path, i, render(oldArr[i])))
	}
}

// leafEqual is the tolerant leaf comparison: strict equality, equality after
// trimming to strings, or numeric equality within epsilon.
func leafEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}

	// No direct == here: interface values holding maps or slices are not
	// comparable and would panic on mixed-type leaves.
	as := strings.TrimSpace(toString(a))
	bs := strings.TrimSpace(toString(b))
	if as == bs {
		return true
	}

	an, aOK := parseNumber(a)
	bn, bOK := parseNumber(b)
	if aOK && bOK {
		return math.Abs(an-bn) < numericEpsilon
	}

	return false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func render(v any) string {
	s := toString(v)
	if v == nil {
		s = "(null)"
	}
	if len(s) > maxDiffValueLen {
		s = s[:maxDiffValueLen] + "..."
	}
	return s
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
