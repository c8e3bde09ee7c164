// Package retry decides whether a failed page fetch should be attempted again.
//
// Policies answer a yes/no question and never sleep: backoff between attempts
// belongs to the transport (see pkg/client). Stateful policies come from a
// Factory, and each walk must obtain its own instance:
//
//	factory := retry.NTimes(3)
//	walker, err := pager.New(req, api.SearchReads, factory.New())
//
// A Counting policy that has been exhausted stays exhausted, so sharing one
// instance between walks silently disables retries for the later ones.
package retry

import "fmt"

// Policy decides whether a failed request should be sent again.
type Policy interface {
	// ShouldRetry is called once per failed attempt with the request that
	// failed and the error returned by the transport.
	ShouldRetry(request any, err error) bool
}

// Factory produces policies. Every call to New returns an independent policy.
type Factory interface {
	New() Policy
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc func(request any, err error) bool

// ShouldRetry calls f(request, err).
func (f PolicyFunc) ShouldRetry(request any, err error) bool {
	return f(request, err)
}

var (
	// Always retries every failure.
	Always Policy = PolicyFunc(func(any, error) bool { return true })

	// Never gives up on the first failure.
	Never Policy = PolicyFunc(func(any, error) bool { return false })
)

// Counting retries until its attempt budget is spent. The zero value never
// retries. Counting is not safe for concurrent use.
type Counting struct {
	max      int
	attempts int
}

// ShouldRetry returns true while fewer than max retries have been granted.
func (c *Counting) ShouldRetry(any, error) bool {
	c.attempts++
	return c.attempts <= c.max
}

// Attempts returns how many times ShouldRetry has been consulted.
func (c *Counting) Attempts() int {
	return c.attempts
}

// Retries returns how many retries were granted so far.
func (c *Counting) Retries() int {
	return min(c.attempts, c.max)
}

// Exhausted reports whether the policy will refuse the next retry.
func (c *Counting) Exhausted() bool {
	return c.attempts >= c.max
}

// String implements fmt.Stringer.
func (c *Counting) String() string {
	return fmt.Sprintf("retry %d/%d", c.Retries(), c.max)
}

type nTimes int

// NTimes returns a factory of Counting policies that each allow n retries.
// Negative n is treated as zero.
func NTimes(n int) Factory {
	return nTimes(max(n, 0))
}

// New returns a fresh Counting policy with a zeroed counter.
func (n nTimes) New() Policy {
	return &Counting{max: int(n)}
}

type static struct {
	policy Policy
}

// Static wraps a stateless policy, such as Always or Never, in a Factory that
// returns the same policy every time.
func Static(p Policy) Factory {
	return static{policy: p}
}

// New returns the wrapped policy.
func (s static) New() Policy {
	return s.policy
}
