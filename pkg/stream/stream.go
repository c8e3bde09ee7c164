// Package stream flattens a sequence of result pages into a sequence of
// individual items.
package stream

import (
	"context"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/api/iterator"
)

var itemsFiltered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "genomics_stream_items_filtered_total",
	Help: "Total number of result items dropped by stream filters",
})

// PageSource produces pages until it returns iterator.Done.
// *pager.Walker implements it.
type PageSource[Resp any] interface {
	Next(ctx context.Context) (Resp, error)
}

// Filter decides whether an item is delivered. An error ends the stream.
type Filter[T any] func(item T) (bool, error)

// Option configures a Stream.
type Option[T any] func(*Stream[T])

// WithFilter drops items for which filter returns false. A nil filter keeps
// every item.
func WithFilter[T any](filter func(T) (bool, error)) Option[T] {
	return func(s *Stream[T]) {
		s.filter = filter
	}
}

// Stream yields the items of every page in page order. Pages without items
// are skipped; only the end of the page source ends the stream. A Stream is
// not safe for concurrent use.
type Stream[T any] struct {
	next     func(ctx context.Context) ([]T, error)
	filter   Filter[T]
	buf      []T
	pos      int
	filtered int
	err      error
}

// Flatten returns a stream over the items extract finds in each page.
func Flatten[Resp, T any](pages PageSource[Resp], extract func(Resp) []T, opts ...Option[T]) *Stream[T] {
	s := &Stream[T]{
		next: func(ctx context.Context) ([]T, error) {
			page, err := pages.Next(ctx)
			if err != nil {
				return nil, err
			}
			return extract(page), nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next item, iterator.Done at the end of the stream, or
// the error that ended it. Errors are final.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if s.err != nil {
			return zero, s.err
		}

		// buf belongs to the page source; it is read, never written.
		for s.pos < len(s.buf) {
			item := s.buf[s.pos]
			s.pos++

			if s.filter != nil {
				keep, err := s.filter(item)
				if err != nil {
					s.err = err
					s.buf, s.pos = nil, 0
					return zero, err
				}
				if !keep {
					s.filtered++
					itemsFiltered.Inc()
					continue
				}
			}
			return item, nil
		}

		items, err := s.next(ctx)
		if err != nil {
			s.err = err
			continue
		}
		s.buf, s.pos = items, 0
	}
}

// Filtered returns how many items the filter has dropped so far.
func (s *Stream[T]) Filtered() int {
	return s.filtered
}

// All returns a sequence over the remaining items. The sequence ends after
// the last item or after yielding the first error.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := s.Next(ctx)
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(item, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Collect drains the stream into a slice. On error it returns the items
// read so far together with the error.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var items []T
	for item, err := range s.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Count drains the stream and returns the number of items delivered.
func Count[T any](ctx context.Context, s *Stream[T]) (int, error) {
	n := 0
	for _, err := range s.All(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
