// Package extract holds the small pieces shared by the document parser and the
// price lookup: an ordered strategy runner, the currency amount pattern and the
// vendor's product URL shapes.
package extract

// Strategy is one way of extracting a T. It reports false when it found nothing.
type Strategy[T any] func() (T, bool)

// First runs strategies in order and returns the first result found.
func First[T any](strategies ...Strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
