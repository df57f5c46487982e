// Package reconcile decides whether an async result still belongs to the
// visual slot it was requested for. Slots are reused while scrolling, so a
// slot captured at request time may now display a different row
package reconcile

import "timeline/internal/core/opqueue"

// Locator maps between data rows and the visual slots currently showing them.
// Both lookups must be called on the main queue
type Locator[S comparable] interface {
	// RowForSlot returns the row slot is bound to; false when it shows nothing
	RowForSlot(mc *opqueue.MainContext, slot S) (int, bool)
	// SlotForRow returns the slot displaying row; false when the row is off screen
	SlotForRow(mc *opqueue.MainContext, row int) (S, bool)
}

// IsStale reports whether slot now displays a row other than requestedRow.
// An unbound slot is not stale
func IsStale[S comparable](mc *opqueue.MainContext, requestedRow int, slot S, loc Locator[S]) bool {
	mc.Assert()
	row, ok := loc.RowForSlot(mc, slot)
	return ok && row != requestedRow
}

// Target returns the slot a result for requestedRow should be applied to:
// the captured slot unless it is stale
func Target[S comparable](mc *opqueue.MainContext, requestedRow int, slot S, loc Locator[S]) (S, bool) {
	if IsStale(mc, requestedRow, slot, loc) {
		var zero S
		return zero, false
	}
	return slot, true
}
