// Package boundary decides which shard owns a record that straddles a shard
// edge.
//
// The search API returns every record overlapping the requested range, so a
// read or variant crossing the start of a shard is returned to that shard and
// to the previous one. Policies resolve the double count:
//
//   - Overlaps keeps everything (the API default).
//   - Strict keeps records that start at or after the shard start.
//   - NonVariantOverlaps is Strict for variant calls but keeps every
//     non-variant segment, so coverage is not lost at shard edges.
//
// Predicates are stateless and may be shared between goroutines.
package boundary

import (
	"strings"

	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/fields"
	"github.com/Sternrassler/genomics-client/pkg/genomics"
)

// Policy selects how records crossing a shard's start are assigned.
type Policy int

const (
	// Overlaps keeps every record returned for the shard.
	Overlaps Policy = iota

	// Strict drops records starting before the shard start.
	Strict

	// NonVariantOverlaps applies Strict to variant calls only.
	NonVariantOverlaps
)

// String returns the policy name as accepted by ParsePolicy.
func (p Policy) String() string {
	switch p {
	case Strict:
		return "STRICT"
	case NonVariantOverlaps:
		return "NON_VARIANT_OVERLAPS"
	default:
		return "OVERLAPS"
	}
}

// ParsePolicy parses OVERLAPS, STRICT or NON_VARIANT_OVERLAPS, ignoring case.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OVERLAPS":
		return Overlaps, nil
	case "STRICT":
		return Strict, nil
	case "NON_VARIANT_OVERLAPS":
		return NonVariantOverlaps, nil
	default:
		return Overlaps, errs.Validation("boundary", "unknown shard boundary policy %q", s)
	}
}

// Predicate reports whether an item belongs to the shard it was fetched for.
type Predicate[T any] func(item T) (bool, error)

// StrictPredicate returns a predicate keeping items whose start is at or after
// shardStart. start may fail for items that carry no position.
func StrictPredicate[T any](shardStart int64, start func(T) (int64, error)) Predicate[T] {
	return func(item T) (bool, error) {
		pos, err := start(item)
		if err != nil {
			return false, err
		}
		return pos >= shardStart, nil
	}
}

// NonVariantOverlapsPredicate keeps every item for which isNonVariant is
// true and applies StrictPredicate to the rest.
func NonVariantOverlapsPredicate[T any](shardStart int64, start func(T) (int64, error), isNonVariant func(T) bool) Predicate[T] {
	strict := StrictPredicate(shardStart, start)
	return func(item T) (bool, error) {
		if isNonVariant(item) {
			return true, nil
		}
		return strict(item)
	}
}

func readStart(r *genomics.Read) (int64, error) {
	pos, ok := r.AlignmentPosition()
	if !ok {
		id := ""
		if r != nil {
			id = r.ID
		}
		return 0, errs.Validation("read", "read %q has no alignment position; strict shard boundaries need mapped reads with alignment(position) in the response", id)
	}
	return pos, nil
}

func variantStart(v *genomics.Variant) (int64, error) {
	return v.Start, nil
}

func isNonVariant(v *genomics.Variant) bool {
	return v.IsNonVariant()
}

// ForReads returns the predicate implementing policy for reads of a shard
// starting at shardStart. mask is the partial-response field mask of the
// search, or "" when every field is returned. Overlaps returns a nil
// predicate. Reads have no non-variant segments, so NonVariantOverlaps
// behaves as Strict.
func ForReads(policy Policy, shardStart int64, mask string) (Predicate[*genomics.Read], error) {
	switch policy {
	case Overlaps:
		return nil, nil
	case Strict, NonVariantOverlaps:
		if err := fields.Check(mask, fields.Alignment); err != nil {
			return nil, err
		}
		return StrictPredicate(shardStart, readStart), nil
	default:
		return nil, errs.Validation("boundary", "unknown shard boundary policy %d", int(policy))
	}
}

// ForVariants returns the predicate implementing policy for variants of a
// shard starting at shardStart. mask is the partial-response field mask of
// the search, or "" when every field is returned. Overlaps returns a nil
// predicate.
func ForVariants(policy Policy, shardStart int64, mask string) (Predicate[*genomics.Variant], error) {
	switch policy {
	case Overlaps:
		return nil, nil
	case Strict:
		if err := fields.Check(mask, fields.Start); err != nil {
			return nil, err
		}
		return StrictPredicate(shardStart, variantStart), nil
	case NonVariantOverlaps:
		if err := fields.Check(mask, fields.Start, fields.AlternateBases); err != nil {
			return nil, err
		}
		return NonVariantOverlapsPredicate(shardStart, variantStart, isNonVariant), nil
	default:
		return nil, errs.Validation("boundary", "unknown shard boundary policy %d", int(policy))
	}
}
