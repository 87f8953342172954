package pipeline

import "iter"

// Item is one structured value flowing between stages: a map, slice, or
// scalar. Stages agree on shape by convention, not by schema.
type Item = any

// Stream lazily yields items. A non-nil error element terminates
// consumption; producers must not yield further elements after an error.
type Stream = iter.Seq2[Item, error]

// FromItems returns a Stream over the given items.
func FromItems(items ...Item) Stream {
	return func(yield func(Item, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

// Collect drains a Stream into a slice, stopping at the first error.
// A nil stream collects to an empty slice.
func Collect(s Stream) ([]Item, error) {
	items := []Item{}
	if s == nil {
		return items, nil
	}
	for it, err := range s {
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
