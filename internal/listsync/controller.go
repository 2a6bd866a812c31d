// Package listsync keeps one paginated, filterable list view in sync with the API.
//
// Every intent that changes the query issues a fetch tagged with a token
// strictly greater than all earlier ones. Only the response carrying the
// latest token is applied; anything else completing later or earlier is
// dropped without touching state. In-flight calls are never cancelled.
package listsync

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/metrics"
	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/pagination"
	"github.com/and161185/admin-console/internal/transport"
)

// Fetcher performs authenticated API calls.
type Fetcher interface {
	Send(ctx context.Context, method, path string, query url.Values, body any) (*transport.Response, error)
}

// SessionChecker answers whether a usable session exists right now.
type SessionChecker interface {
	IsValid() bool
}

// SessionListener is told when the flow has to stop for re-authentication.
type SessionListener interface {
	SessionInvalidated(reason error)
}

// ListenerFunc adapts a function to SessionListener.
type ListenerFunc func(reason error)

func (f ListenerFunc) SessionInvalidated(reason error) { f(reason) }

// Resource describes one list endpoint.
type Resource struct {
	Name             string
	Path             string
	DefaultSortBy    string
	DefaultSortOrder string
	DefaultPageSize  int
}

type settings struct {
	log         *zap.Logger
	metrics     *metrics.Metrics
	successCode string
}

// Option customizes a Controller.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.log = l } }

// WithMetrics records fetch outcomes and stale discards.
func WithMetrics(m *metrics.Metrics) Option { return func(s *settings) { s.metrics = m } }

// WithSuccessCode overrides the envelope success code.
func WithSuccessCode(code string) Option { return func(s *settings) { s.successCode = code } }

type pagePayload[T any] struct {
	Content []T `json:"content"`
	pagination.Meta
}

// Controller owns the query and fetch state of one list.
type Controller[T any] struct {
	res      Resource
	fetcher  Fetcher
	sessions SessionChecker
	listener SessionListener
	settings

	mu       sync.Mutex
	query    Query
	state    FetchState[T]
	items    []T
	page     pagination.Page
	known    bool // page.Total came from a response
	observed bool // at least one item was ever received
	seq      uint64
	latest   uint64 // 0: nothing outstanding

	inflight sync.WaitGroup
}

// New builds a controller in the Idle state. Nothing is fetched until the
// first intent (usually Refresh).
func New[T any](res Resource, f Fetcher, s SessionChecker, l SessionListener, opts ...Option) *Controller[T] {
	st := settings{log: zap.NewNop(), successCode: model.CodeSuccess}
	for _, o := range opts {
		o(&st)
	}
	if l == nil {
		l = ListenerFunc(func(error) {})
	}
	size := res.DefaultPageSize
	if size < 1 {
		size = 10
	}
	return &Controller[T]{
		res:      res,
		fetcher:  f,
		sessions: s,
		listener: l,
		settings: st,
		query: Query{
			SortBy:    res.DefaultSortBy,
			SortOrder: res.DefaultSortOrder,
			PageSize:  size,
		},
	}
}

// SetFilters replaces the filters, goes back to the first page and fetches.
func (c *Controller[T]) SetFilters(ctx context.Context, f Filters) {
	c.mu.Lock()
	c.query.Filters = f.Clone()
	c.query.Page = 0
	c.issue(ctx)
}

// ResetFilters clears all filters.
func (c *Controller[T]) ResetFilters(ctx context.Context) { c.SetFilters(ctx, nil) }

// SetSort changes ordering, goes back to the first page and fetches.
func (c *Controller[T]) SetSort(ctx context.Context, by, order string) {
	c.mu.Lock()
	c.query.SortBy, c.query.SortOrder = by, order
	c.query.Page = 0
	c.issue(ctx)
}

// SetPageSize changes the page size, goes back to the first page and
// fetches. Sizes below 1 are ignored.
func (c *Controller[T]) SetPageSize(ctx context.Context, n int) bool {
	if n < 1 {
		return false
	}
	c.mu.Lock()
	c.query.PageSize = n
	c.query.Page = 0
	c.issue(ctx)
	return true
}

// GoToPage fetches page n if it exists. With no known total any n >= 0 is
// accepted.
func (c *Controller[T]) GoToPage(ctx context.Context, n int) bool {
	c.mu.Lock()
	if n < 0 || (c.known && n >= c.page.Total) {
		c.mu.Unlock()
		return false
	}
	c.query.Page = n
	c.issue(ctx)
	return true
}

// NextPage moves one page forward.
func (c *Controller[T]) NextPage(ctx context.Context) bool {
	return c.GoToPage(ctx, c.Query().Page+1)
}

// PrevPage moves one page back.
func (c *Controller[T]) PrevPage(ctx context.Context) bool {
	return c.GoToPage(ctx, c.Query().Page-1)
}

// FirstPage jumps to page 0.
func (c *Controller[T]) FirstPage(ctx context.Context) bool { return c.GoToPage(ctx, 0) }

// LastPage jumps to the last known page.
func (c *Controller[T]) LastPage(ctx context.Context) bool {
	p, ok := c.Pages()
	if !ok || p.Total < 1 {
		return false
	}
	return c.GoToPage(ctx, p.Total-1)
}

// Refresh re-issues the current query unchanged.
func (c *Controller[T]) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.issue(ctx)
}

// State returns the current fetch state.
func (c *Controller[T]) State() FetchState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pages returns the last normalized position; ok is false until a response
// has been applied.
func (c *Controller[T]) Pages() (pagination.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page, c.known
}

// Query returns a copy of the current query.
func (c *Controller[T]) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

// View returns the render model.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View[T]{
		Items:      c.items,
		Page:       c.query.Page,
		TotalPages: c.page.Total,
		Status:     c.state.Status,
		Err:        c.state.Err,
		Query:      c.query.Clone(),
	}
}

// Wait blocks until every issued fetch has completed, applied or not.
func (c *Controller[T]) Wait() { c.inflight.Wait() }

// issue mints a token and starts the fetch. It must be called with c.mu held
// and releases it.
func (c *Controller[T]) issue(ctx context.Context) {
	c.seq++
	tok := c.seq

	if !c.sessions.IsValid() {
		// older in-flight responses must not land after this point
		c.latest = 0
		c.state = FetchState[T]{Status: StatusIdle}
		c.mu.Unlock()

		c.metrics.Fetch(c.res.Name, metrics.OutcomeSkipped)
		c.log.Info("fetch skipped: no valid session", zap.String("resource", c.res.Name))
		c.listener.SessionInvalidated(errs.ErrSessionMissing)
		return
	}

	c.latest = tok
	c.state = FetchState[T]{Status: StatusLoading}
	q := c.query.Clone()
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.run(ctx, tok, q)
}

func (c *Controller[T]) run(ctx context.Context, tok uint64, q Query) {
	defer c.inflight.Done()

	var payload pagePayload[T]
	resp, err := c.fetcher.Send(ctx, http.MethodGet, c.res.Path, q.Values(), nil)
	if err == nil {
		err = transport.DecodeEnvelope(resp, c.successCode, &payload)
	}
	c.complete(tok, q, payload, err)
}

func (c *Controller[T]) complete(tok uint64, q Query, payload pagePayload[T], err error) {
	c.mu.Lock()
	if tok != c.latest {
		latest := c.latest
		c.mu.Unlock()
		c.metrics.StaleDiscarded(c.res.Name)
		c.log.Debug("stale response discarded",
			zap.String("resource", c.res.Name),
			zap.Uint64("token", tok),
			zap.Uint64("latest", latest),
		)
		return
	}
	c.latest = 0

	switch {
	case errs.IsSessionLoss(err):
		c.state = FetchState[T]{Status: StatusIdle}
		c.mu.Unlock()
		c.metrics.Fetch(c.res.Name, metrics.OutcomeUnauthorized)
		c.log.Info("session invalidated during fetch", zap.String("resource", c.res.Name), zap.Error(err))
		c.listener.SessionInvalidated(err)
		return

	case err != nil:
		c.state = FetchState[T]{Status: StatusFailed, Err: err}
		c.mu.Unlock()
		c.metrics.Fetch(c.res.Name, metrics.OutcomeFailed)
		c.log.Warn("fetch failed", zap.String("resource", c.res.Name), zap.Error(err))
		return
	}

	page, nerr := pagination.Normalize(c.page.Total, payload.Meta)
	if !payload.Meta.HasPosition() {
		page.Current = q.Page
	}
	items := payload.Content
	if items == nil {
		items = []T{}
	}
	if len(items) > 0 {
		c.observed = true
	}
	if c.observed && page.Total < 1 {
		page.Total = 1
	}
	if page.Total > 0 && page.Current >= page.Total {
		page.Current = page.Total - 1
	}

	c.page, c.known = page, true
	c.query.Page = page.Current
	c.items = items
	c.state = FetchState[T]{Status: StatusSucceeded, Items: items, Page: page}
	c.mu.Unlock()

	if nerr != nil {
		c.log.Warn("pagination metadata", zap.String("resource", c.res.Name), zap.Error(nerr))
	}
	c.metrics.Fetch(c.res.Name, metrics.OutcomeSucceeded)
}
