// Package fields checks caller-supplied partial-response field masks.
//
// A mask is the value of the API's "fields" query parameter, for example
// "nextPageToken,alignments(id,alignment(position))". An empty mask selects
// every field. Requirements are matched with regular expressions instead of
// parsing the mask, so masks only need to mention the required field by name.
package fields

import (
	"regexp"
	"strings"

	"github.com/Sternrassler/genomics-client/pkg/errs"
)

// Requirement names a response field that a component needs to be present.
type Requirement struct {
	// Name is the field name used in error messages.
	Name string

	// Pattern must match the whole mask for the requirement to hold.
	Pattern *regexp.Regexp
}

// Predefined requirements.
var (
	// NextPageToken is required by the page walker on every paged endpoint.
	NextPageToken = Requirement{
		Name:    "nextPageToken",
		Pattern: regexp.MustCompile(`^(.*[^A-Za-z])?nextPageToken([^A-Za-z].*)?$`),
	}

	// Alignment is required to evaluate a strict shard boundary on reads.
	Alignment = Requirement{
		Name:    "alignment",
		Pattern: regexp.MustCompile(`.*[^A-Za-z]alignment[^A-Za-z].*`),
	}

	// Start is required to evaluate a strict shard boundary on variants.
	Start = Requirement{
		Name:    "start",
		Pattern: regexp.MustCompile(`.*[^A-Za-z]start[^A-Za-z].*`),
	}

	// AlternateBases is required to tell non-variant segments from variant calls.
	AlternateBases = Requirement{
		Name:    "alternateBases",
		Pattern: regexp.MustCompile(`.*[^A-Za-z]alternateBases[^A-Za-z].*`),
	}
)

// Satisfied reports whether mask includes the required field.
func (r Requirement) Satisfied(mask string) bool {
	return mask == "" || r.Pattern.MatchString(mask)
}

// Check verifies that mask satisfies every requirement. The returned error is
// a *errs.ValidationError listing the missing fields.
func Check(mask string, reqs ...Requirement) error {
	if mask == "" {
		return nil
	}

	var missing []string
	for _, r := range reqs {
		if !r.Satisfied(mask) {
			missing = append(missing, r.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return &errs.ValidationError{
		Field: "fields",
		Reason: "insufficient fields requested in partial response " +
			"(mask " + quote(mask) + " does not include " + strings.Join(missing, ", ") + ")",
	}
}

func quote(s string) string {
	return `"` + s + `"`
}
