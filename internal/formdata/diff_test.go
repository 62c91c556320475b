package formdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_IdenticalPayloadsProduceNoLines(t *testing.T) {
	payload := map[string]any{
		"lotNo": "LOT-9",
		"header": map[string]any{
			"inputKg": 120.5,
			"pallets": []any{
				map[string]any{"palletNo": "P-01", "qty": 40.0},
			},
		},
	}

	assert.Empty(t, Diff(payload, payload))
}

func TestDiff_NumericFormatDriftIsNotAChange(t *testing.T) {
	oldPayload := map[string]any{"qty": "2", "yield": 95.0, "note": " ok "}
	newPayload := map[string]any{"qty": 2.00, "yield": "95.000", "note": "ok"}

	assert.Empty(t, Diff(oldPayload, newPayload))
}

func TestDiff_ReportsNestedPaths(t *testing.T) {
	oldPayload := map[string]any{
		"header": map[string]any{"inputKg": 100.0, "line": "L1"},
	}
	newPayload := map[string]any{
		"header": map[string]any{"inputKg": 110.0, "line": "L1"},
	}

	lines := Diff(oldPayload, newPayload)

	require.Len(t, lines, 1)
	assert.Equal(t, "header.inputKg: 100 -> 110", lines[0])
}

func TestDiff_AddedAndRemovedKeys(t *testing.T) {
	oldPayload := map[string]any{"a": 1.0, "b": 2.0}
	newPayload := map[string]any{"b": 2.0, "c": 3.0}

	lines := Diff(oldPayload, newPayload)

	assert.Equal(t, []string{
		"a: 1 -> (removed)",
		"c: (none) -> 3",
	}, lines)
}

func TestDiff_ArrayElementAndTailChanges(t *testing.T) {
	oldPayload := map[string]any{
		"pallets": []any{
			map[string]any{"palletNo": "P-01", "qty": 40.0},
			map[string]any{"palletNo": "P-02", "qty": 35.0},
		},
	}
	newPayload := map[string]any{
		"pallets": []any{
			map[string]any{"palletNo": "P-01", "qty": 41.0},
		},
	}

	lines := Diff(oldPayload, newPayload)

	require.Len(t, lines, 2)
	assert.Equal(t, "pallets[0].qty: 40 -> 41", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "pallets[1]: "))
	assert.True(t, strings.HasSuffix(lines[1], "-> (removed)"))
}

func TestDiff_ArrayGrowthReportsNewTail(t *testing.T) {
	oldPayload := map[string]any{"tags": []any{"a"}}
	newPayload := map[string]any{"tags": []any{"a", "b"}}

	lines := Diff(oldPayload, newPayload)

	assert.Equal(t, []string{"tags[1]: (none) -> b"}, lines)
}

func TestDiff_SkipsBookkeepingTimestamps(t *testing.T) {
	oldPayload := map[string]any{
		"createdAt": "2026-08-01T10:00:00Z",
		"updatedAt": "2026-08-01T10:00:00Z",
		"lotNo":     "LOT-1",
	}
	newPayload := map[string]any{
		"createdAt": "2026-08-02T09:00:00Z",
		"updatedAt": "2026-08-02T09:00:00Z",
		"lotNo":     "LOT-1",
	}

	assert.Empty(t, Diff(oldPayload, newPayload))
}

func TestDiff_TimestampKeysSkippedAtAnyDepth(t *testing.T) {
	oldPayload := map[string]any{
		"meta":    map[string]any{"updatedAt": "x", "rev": 1.0},
		"pallets": []any{map[string]any{"createdAt": "a", "qty": 5.0}},
	}
	newPayload := map[string]any{
		"meta":    map[string]any{"updatedAt": "y", "rev": 1.0},
		"pallets": []any{map[string]any{"createdAt": "b", "qty": 5.0}},
	}

	assert.Empty(t, Diff(oldPayload, newPayload))
}

func TestDiff_NullTransitions(t *testing.T) {
	oldPayload := map[string]any{"remark": nil}
	newPayload := map[string]any{"remark": "checked"}

	lines := Diff(oldPayload, newPayload)

	assert.Equal(t, []string{"remark: (null) -> checked"}, lines)
}

func TestDiff_TypeChangeBetweenLeafAndObject(t *testing.T) {
	oldPayload := map[string]any{"extra": "plain"}
	newPayload := map[string]any{"extra": map[string]any{"k": "v"}}

	lines := Diff(oldPayload, newPayload)

	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "extra: plain -> "))
}

func TestDiff_LongValuesAreTruncated(t *testing.T) {
	long := strings.Repeat("x", 200)
	oldPayload := map[string]any{"note": "short"}
	newPayload := map[string]any{"note": long}

	lines := Diff(oldPayload, newPayload)

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "...")
	assert.Less(t, len(lines[0]), 120)
}

func TestDiff_OutputOrderIsStable(t *testing.T) {
	oldPayload := map[string]any{"b": 1.0, "a": 1.0, "c": 1.0}
	newPayload := map[string]any{"b": 2.0, "a": 2.0, "c": 2.0}

	first := Diff(oldPayload, newPayload)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"a: 1 -> 2", "b: 1 -> 2", "c: 1 -> 2"}, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Diff(oldPayload, newPayload))
	}
}
