package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/iterator"
)

type page struct {
	items []int
}

// fakePages returns the configured pages, then err (iterator.Done when nil).
type fakePages struct {
	pages []page
	err   error
	calls int
}

func (f *fakePages) Next(context.Context) (page, error) {
	f.calls++
	if len(f.pages) == 0 {
		if f.err != nil {
			return page{}, f.err
		}
		return page{}, iterator.Done
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func items(p page) []int { return p.items }

func TestFlatten_SkipsEmptyPages(t *testing.T) {
	src := &fakePages{pages: []page{
		{items: []int{1, 2}},
		{},
		{items: nil},
		{items: []int{3}},
		{},
	}}

	got, err := Collect(context.Background(), Flatten(src, items))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_LeavesPagesIntact(t *testing.T) {
	shared := page{items: []int{7, 8, 9}}
	src := &fakePages{pages: []page{shared}}

	got, err := Collect(context.Background(), Flatten(src, items))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if diff := cmp.Diff([]int{7, 8, 9}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{7, 8, 9}, shared.items); diff != "" {
		t.Errorf("page modified while streaming (-want +got):\n%s", diff)
	}
}

func TestFlatten_Lazy(t *testing.T) {
	src := &fakePages{pages: []page{{items: []int{1}}, {items: []int{2}}}}
	s := Flatten(src, items)

	if src.calls != 0 {
		t.Fatalf("Flatten fetched %d pages eagerly", src.calls)
	}
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("fetched %d pages for the first item, want 1", src.calls)
	}
}

func TestFlatten_PropagatesPageError(t *testing.T) {
	boom := errors.New("search failed")
	src := &fakePages{pages: []page{{items: []int{1, 2}}}, err: boom}
	s := Flatten(src, items)

	got, err := Collect(context.Background(), s)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
		t.Errorf("items before error mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Next(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Next after error = %v, want sticky %v", err, boom)
	}
}

func TestFlatten_WithFilter(t *testing.T) {
	src := &fakePages{pages: []page{{items: []int{1, 2, 3}}, {items: []int{4, 5, 6}}}}
	even := func(i int) (bool, error) { return i%2 == 0, nil }

	s := Flatten(src, items, WithFilter(even))
	got, err := Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if diff := cmp.Diff([]int{2, 4, 6}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if s.Filtered() != 3 {
		t.Errorf("Filtered() = %d, want 3", s.Filtered())
	}
}

func TestFlatten_FilterError(t *testing.T) {
	bad := errors.New("unmapped read")
	src := &fakePages{pages: []page{{items: []int{1, 2, 3}}}}
	filter := func(i int) (bool, error) {
		if i == 2 {
			return false, bad
		}
		return true, nil
	}

	got, err := Collect(context.Background(), Flatten(src, items, WithFilter(filter)))
	if !errors.Is(err, bad) {
		t.Fatalf("error = %v, want %v", err, bad)
	}
	if diff := cmp.Diff([]int{1}, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestCount(t *testing.T) {
	src := &fakePages{pages: []page{{items: []int{1, 2}}, {items: []int{3}}}}

	n, err := Count(context.Background(), Flatten(src, items))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestStream_AllBreak(t *testing.T) {
	src := &fakePages{pages: []page{{items: []int{1, 2, 3}}}}
	s := Flatten(src, items)

	for range s.All(context.Background()) {
		break
	}
	next, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != 2 {
		t.Errorf("Next after break = %d, want 2", next)
	}
}
