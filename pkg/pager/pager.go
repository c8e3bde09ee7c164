// Package pager walks the page-token protocol of the genomics search API.
//
// A Walker sends an initial request, then keeps sending copies of it with
// the page token of the previous response until a response carries no token.
// Pages are fetched lazily, one per call to Next:
//
//	w, err := pager.New(req, api.SearchReads, retry.NTimes(3).New())
//	if err != nil {
//		return err
//	}
//	for {
//		page, err := w.Next(ctx)
//		if err == iterator.Done {
//			break
//		}
//		if err != nil {
//			return err // *pager.SearchError
//		}
//		process(page.GetAlignments())
//	}
//
// A Walker is owned by one goroutine and cannot be rewound. To restart a
// search from page 1, build a new Walker from the original request.
package pager

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/Sternrassler/genomics-client/pkg/errs"
	"github.com/Sternrassler/genomics-client/pkg/fields"
	"github.com/Sternrassler/genomics-client/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

// Prometheus metrics for page walking.
var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_pages_fetched_total",
		Help: "Total number of result pages fetched by request type",
	}, []string{"request"})

	pageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_page_retries_total",
		Help: "Total number of page fetches retried by request type",
	}, []string{"request"})

	searchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genomics_search_failures_total",
		Help: "Total number of searches that failed after retries by request type",
	}, []string{"request"})
)

// Request is implemented by paged request types. R is the request type
// itself, usually a pointer.
type Request[R any] interface {
	// Clone returns an independent copy of the request.
	Clone() R

	// SetPageToken sets the token of the page to fetch.
	SetPageToken(token string)
}

// FieldSelector is implemented by requests that accept a partial-response
// field mask.
type FieldSelector interface {
	SetFields(mask string)
}

// Response is implemented by paged response types.
type Response interface {
	// GetNextPageToken returns the token of the following page, or "" on
	// the last page.
	GetNextPageToken() string
}

// SendFunc executes a single page request.
type SendFunc[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// ErrSearchFailed matches every *SearchError via errors.Is.
var ErrSearchFailed = errors.New("search failed")

// SearchError reports a page fetch that failed and was not retried further.
// It lets callers tell a failed search from one that found nothing.
type SearchError struct {
	// Page is the 1-based number of the page that could not be fetched.
	Page int

	// Attempts is the number of times the page request was sent.
	Attempts int

	// Err is the last error returned by the transport.
	Err error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed on page %d after %d attempt(s): %v", e.Page, e.Attempts, e.Err)
}

// Unwrap returns the transport error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSearchFailed.
func (e *SearchError) Is(target error) bool {
	return target == ErrSearchFailed
}

type options[Req any] struct {
	initializers []func(Req)
	mask         string
	maskSet      bool
	logger       *zerolog.Logger
}

// Option configures a Walker.
type Option[Req any] func(*options[Req])

// WithInitializer registers a hook that may modify every outgoing request
// before it is sent. The hook must keep the page token intact.
func WithInitializer[Req any](fn func(Req)) Option[Req] {
	return func(o *options[Req]) {
		if fn != nil {
			o.initializers = append(o.initializers, fn)
		}
	}
}

// WithFields requests a partial response. The mask must keep nextPageToken,
// otherwise New fails with a validation error. An empty mask requests every
// field.
func WithFields[Req any](mask string) Option[Req] {
	return func(o *options[Req]) {
		o.mask = mask
		o.maskSet = true
	}
}

// WithLogger sets the logger used for retry and failure events.
func WithLogger[Req any](logger zerolog.Logger) Option[Req] {
	return func(o *options[Req]) {
		o.logger = &logger
	}
}

// Walker lazily produces the pages of one search. It is not safe for
// concurrent use.
type Walker[Req Request[Req], Resp Response] struct {
	send         SendFunc[Req, Resp]
	policy       retry.Policy
	initializers []func(Req)
	logger       zerolog.Logger
	label        string

	next  Req
	pages int
	done  bool
	err   error
}

// New returns a Walker starting at initial. The initial request is cloned
// and never modified. policy must be owned by this walk alone.
func New[Req Request[Req], Resp Response](initial Req, send SendFunc[Req, Resp], policy retry.Policy, opts ...Option[Req]) (*Walker[Req, Resp], error) {
	if send == nil {
		return nil, errs.Validation("send", "send function is nil")
	}
	if policy == nil {
		return nil, errs.Validation("policy", "retry policy is nil")
	}

	var o options[Req]
	for _, opt := range opts {
		opt(&o)
	}

	initializers := o.initializers
	if o.maskSet {
		if err := fields.Check(o.mask, fields.NextPageToken); err != nil {
			return nil, err
		}
		if _, ok := any(initial).(FieldSelector); !ok {
			return nil, errs.Validation("fields", "request type %T does not accept a field mask", initial)
		}
		mask := o.mask
		setFields := func(r Req) { any(r).(FieldSelector).SetFields(mask) }
		initializers = append([]func(Req){setFields}, initializers...)
	}

	label := strings.TrimPrefix(fmt.Sprintf("%T", initial), "*")
	logger := log.With().Str("component", "pager").Str("request", label).Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("request", label).Logger()
	}

	w := &Walker[Req, Resp]{
		send:         send,
		policy:       policy,
		initializers: initializers,
		logger:       logger,
		label:        label,
	}
	w.next = w.prepare(initial.Clone())
	return w, nil
}

func (w *Walker[Req, Resp]) prepare(req Req) Req {
	for _, fn := range w.initializers {
		fn(req)
	}
	return req
}

// Next fetches the next page. It returns iterator.Done after the last page
// and a *SearchError when a page could not be fetched. Both outcomes are
// final: every later call returns the same error.
func (w *Walker[Req, Resp]) Next(ctx context.Context) (Resp, error) {
	var zero Resp
	if w.err != nil {
		return zero, w.err
	}
	if w.done {
		return zero, iterator.Done
	}

	req := w.next
	page := w.pages + 1

	var resp Resp
	for attempt := 1; ; attempt++ {
		var err error
		resp, err = w.send(ctx, req)
		if err == nil {
			if attempt > 1 {
				w.logger.Info().
					Int("page", page).
					Int("attempt", attempt).
					Msg("Page fetch succeeded after retry")
			}
			break
		}

		if ctx.Err() != nil {
			return zero, w.fail(page, attempt, err)
		}
		if !w.policy.ShouldRetry(req, err) {
			return zero, w.fail(page, attempt, err)
		}

		pageRetries.WithLabelValues(w.label).Inc()
		w.logger.Warn().
			Err(err).
			Int("page", page).
			Int("attempt", attempt).
			Msg("Page fetch failed, retrying")
	}

	w.pages++
	pagesFetched.WithLabelValues(w.label).Inc()

	token := resp.GetNextPageToken()
	if token == "" {
		w.done = true
		w.logger.Debug().Int("pages", w.pages).Msg("Search complete")
		return resp, nil
	}

	next := req.Clone()
	next.SetPageToken(token)
	w.next = w.prepare(next)

	w.logger.Debug().Int("page", page).Msg("Page fetched")
	return resp, nil
}

func (w *Walker[Req, Resp]) fail(page, attempts int, err error) error {
	w.err = &SearchError{Page: page, Attempts: attempts, Err: err}
	searchFailures.WithLabelValues(w.label).Inc()
	w.logger.Error().
		Err(err).
		Int("page", page).
		Int("attempts", attempts).
		Msg("Search failed")
	return w.err
}

// Pages returns the number of pages delivered so far.
func (w *Walker[Req, Resp]) Pages() int {
	return w.pages
}

// All returns a single-use sequence over the remaining pages. Iteration
// stops after the last page or after yielding the first error. Breaking out
// of the loop leaves the walker positioned at the following page.
func (w *Walker[Req, Resp]) All(ctx context.Context) iter.Seq2[Resp, error] {
	return func(yield func(Resp, error) bool) {
		for {
			resp, err := w.Next(ctx)
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(resp, err)
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}
