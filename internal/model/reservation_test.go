package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []Status{
	StatusRequested, StatusConfirmed, StatusCompleted,
	StatusCancelledByUser, StatusCancelledByShop, StatusNoShow,
}

func TestValidStatus(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, ValidStatus(s), "expected %s to be valid", s)
	}
	assert.False(t, ValidStatus("pending"))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("REQUESTED")) // case sensitive at this layer
}

func TestCanTransition(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusRequested: {StatusConfirmed: true, StatusCancelledByShop: true},
		StatusConfirmed: {StatusCompleted: true, StatusCancelledByShop: true, StatusNoShow: true},
	}
	// Exhaustive check of the full from/to grid.
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusRequested))
	assert.False(t, IsTerminal(StatusConfirmed))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusCancelledByUser))
	assert.True(t, IsTerminal(StatusCancelledByShop))
	assert.True(t, IsTerminal(StatusNoShow))
}

func TestRequiresReason(t *testing.T) {
	for _, s := range allStatuses {
		want := s == StatusCancelledByShop
		assert.Equal(t, want, RequiresReason(s), "status %s", s)
	}
}

func TestStampColumn(t *testing.T) {
	assert.Equal(t, "confirmed_at", StampColumn(StatusConfirmed))
	assert.Equal(t, "completed_at", StampColumn(StatusCompleted))
	assert.Equal(t, "cancelled_at", StampColumn(StatusCancelledByShop))
	assert.Equal(t, "cancelled_at", StampColumn(StatusCancelledByUser))
	assert.Equal(t, "cancelled_at", StampColumn(StatusNoShow))
	assert.Equal(t, "", StampColumn(StatusRequested))
}
