package domain

import (
	"math"
	"time"
)

// Status represents the lifecycle state of a circulation record.
// A record is created as borrowed and ends in returned or lost;
// renewed and overdue are intermediate states.
type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusRenewed  Status = "renewed"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
	StatusLost     Status = "lost"
)

// Circulation policy
const (
	// FinePerDay is the penalty per started day past the due date.
	FinePerDay = 0.50

	// RenewalDays is added to the current due date on each renewal.
	RenewalDays = 14

	// MaxRenewals caps how often a single loan may be renewed.
	MaxRenewals = 2
)

// transitions lists the permitted next statuses per current status.
// returned and lost are terminal and have no entry.
var transitions = map[Status][]Status{
	StatusBorrowed: {StatusRenewed, StatusOverdue, StatusReturned, StatusLost},
	StatusRenewed:  {StatusRenewed, StatusOverdue, StatusReturned, StatusLost},
	StatusOverdue:  {StatusRenewed, StatusReturned, StatusLost},
}

// Valid reports whether s is a known circulation status
func (s Status) Valid() bool {
	switch s {
	case StatusBorrowed, StatusRenewed, StatusOverdue, StatusReturned, StatusLost:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusLost
}

// IsActive reports whether the record still holds a physical copy
func (s Status) IsActive() bool {
	return s == StatusBorrowed || s == StatusRenewed || s == StatusOverdue
}

// CanTransition reports whether moving from s to next is a legal transition
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ActiveStatuses returns the statuses of loans that currently hold a copy
func ActiveStatuses() []Status {
	return []Status{StatusBorrowed, StatusOverdue, StatusRenewed}
}

// SweepableStatuses returns the statuses the overdue sweep may transition.
// Records already overdue are left untouched, which keeps the sweep idempotent.
func SweepableStatuses() []Status {
	return []Status{StatusBorrowed, StatusRenewed}
}

// CalculateFine returns the fine owed for a loan returned at returnDate
// against dueDate. Returns 0 when the loan came back on time. Each started
// day past the due date counts as a full day.
func CalculateFine(dueDate, returnDate time.Time) float64 {
	if !returnDate.After(dueDate) {
		return 0
	}
	daysOverdue := math.Ceil(returnDate.Sub(dueDate).Hours() / 24)
	return daysOverdue * FinePerDay
}
