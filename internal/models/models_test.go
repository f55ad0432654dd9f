package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected bool
	}{
		{name: "Completed", status: StatusCompleted, expected: true},
		{name: "Failed", status: StatusFailed, expected: true},
		{name: "Mixed case completed", status: "Completed", expected: true},
		{name: "Pending", status: StatusPending, expected: false},
		{name: "Processing", status: StatusProcessing, expected: false},
		{name: "Unknown status keeps polling", status: "queued", expected: false},
		{name: "Empty status", status: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTerminal(tt.status))
		})
	}
}
