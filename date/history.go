package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a specific date.
// It ensures that dates are unique and the series is always sorted.
type History[T any] struct {
	days   []Date
	values []T
}

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero values.
func (h *History[T]) Latest() (day Date, value T) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, *new(T)
	}
	return h.days[last], h.values[last]
}

// Clear removes all items from the history.
func (h *History[T]) Clear() {
	h.days = h.days[:0]
	h.values = h.values[:0]
}

// Len returns the number of items in the history.
func (h *History[T]) Len() int { return len(h.days) }

// search locates 'on' in the sorted days slice.
func (h *History[T]) search(on Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, on, Date.Compare)
}

// Append adds a point to the history, keeping it sorted.
//
// Existing value at that date is overwritten, because it gives higher
// priority to the last data.
func (h *History[T]) Append(on Date, q T) *History[T] {
	i, found := h.search(on)
	if found {
		h.values[i] = q
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, q)
	return h
}

// Values returns an iterator over all date/value pairs in the history, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Get returns the value at 'day' and true, or zero value and false.
func (h *History[T]) Get(day Date) (T, bool) {
	if i, found := h.search(day); found {
		return h.values[i], true
	}
	var zero T
	return zero, false
}

// ValueAsOf returns the value on a given day, or the most recent value before it.
// It returns the date, the value and true if found, otherwise zero values and false.
func (h *History[T]) ValueAsOf(day Date) (Date, T, bool) {
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	return h.at(i - 1)
}

// ValueBefore returns the most recent value strictly before a given day.
func (h *History[T]) ValueBefore(day Date) (Date, T, bool) {
	i, _ := h.search(day)
	// whether day is present or not, i-1 is the last entry strictly before it.
	return h.at(i - 1)
}

func (h *History[T]) at(i int) (Date, T, bool) {
	if i < 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.days[i], h.values[i], true
}
