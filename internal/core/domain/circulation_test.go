package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateFine(t *testing.T) {
	due := date(2024, time.January, 1)

	tests := []struct {
		name       string
		returnDate time.Time
		want       float64
	}{
		{"returned early", date(2023, time.December, 28), 0},
		{"returned on due date", due, 0},
		{"one second late counts a full day", due.Add(1 * time.Second), 0.50},
		{"one day late", date(2024, time.January, 2), 0.50},
		{"three days late", date(2024, time.January, 4), 1.50},
		{"partial fourth day rounds up", date(2024, time.January, 4).Add(6 * time.Hour), 2.00},
		{"ten days late", date(2024, time.January, 11), 5.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateFine(due, tt.returnDate))
		})
	}
}

func TestCalculateFineMonotonicDailySteps(t *testing.T) {
	due := date(2024, time.June, 1)

	prev := 0.0
	for days := 1; days <= 30; days++ {
		fine := CalculateFine(due, due.AddDate(0, 0, days))
		assert.Equal(t, float64(days)*FinePerDay, fine)
		assert.Greater(t, fine, prev)
		prev = fine
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusBorrowed, StatusRenewed, true},
		{StatusBorrowed, StatusOverdue, true},
		{StatusBorrowed, StatusReturned, true},
		{StatusBorrowed, StatusLost, true},
		{StatusRenewed, StatusRenewed, true},
		{StatusRenewed, StatusOverdue, true},
		{StatusOverdue, StatusRenewed, true},
		{StatusOverdue, StatusReturned, true},
		{StatusOverdue, StatusLost, true},
		{StatusOverdue, StatusOverdue, false},
		{StatusReturned, StatusBorrowed, false},
		{StatusReturned, StatusOverdue, false},
		{StatusReturned, StatusRenewed, false},
		{StatusLost, StatusReturned, false},
		{StatusLost, StatusRenewed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusReturned.IsTerminal())
	assert.True(t, StatusLost.IsTerminal())
	assert.False(t, StatusBorrowed.IsTerminal())
	assert.False(t, StatusOverdue.IsTerminal())

	assert.True(t, StatusBorrowed.IsActive())
	assert.True(t, StatusRenewed.IsActive())
	assert.True(t, StatusOverdue.IsActive())
	assert.False(t, StatusReturned.IsActive())
	assert.False(t, StatusLost.IsActive())

	assert.True(t, Status("borrowed").Valid())
	assert.False(t, Status("misplaced").Valid())
}

func TestSweepableStatusesExcludeOverdue(t *testing.T) {
	for _, s := range SweepableStatuses() {
		assert.NotEqual(t, StatusOverdue, s)
		assert.False(t, s.IsTerminal())
	}
}
