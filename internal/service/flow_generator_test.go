package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/factorylabs/be-process-reports/internal/repository"
)

func TestGenerateFlow(t *testing.T) {
	tests := []struct {
		name           string
		submitterLevel int
		want           [][2]int // (sequence, requiredLevel)
	}{
		{"level 0 requires all three levels", 0, [][2]int{{1, 1}, {2, 2}, {3, 3}}},
		{"level 1 requires levels 2 and 3", 1, [][2]int{{1, 2}, {2, 3}}},
		{"level 2 requires level 3 only", 2, [][2]int{{1, 3}}},
		{"level 3 requires no steps", 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := GenerateFlow(tt.submitterLevel)
			assert.Len(t, steps, len(tt.want))
			for i, step := range steps {
				assert.Equal(t, tt.want[i][0], step.Sequence)
				assert.Equal(t, tt.want[i][1], step.RequiredLevel)
				assert.Equal(t, repository.StatusPending, step.Status)
			}
		})
	}
}
