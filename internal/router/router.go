// Package router maps console paths to views and enforces the sign-in gate.
package router

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Known paths.
const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathUsers    = "/users"
	PathJobPosts = "/job-posts"
)

// Resolve returns the path that should actually be shown for path.
// Without a session every path resolves to the login view. With one, the
// login view and the root resolve to the users list; unknown paths go to
// login.
func Resolve(path string, authenticated bool) string {
	path = clean(path)
	if !authenticated {
		return PathLogin
	}
	switch path {
	case PathRoot, PathLogin:
		return PathUsers
	case PathUsers, PathJobPosts:
		return path
	default:
		return PathLogin
	}
}

func clean(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// AuthChecker reports whether the operator currently has a valid session.
type AuthChecker interface {
	IsAuthenticated() bool
}

// Navigator tracks the current view. It is safe for concurrent use; list
// controllers call SessionInvalidated from fetch goroutines.
type Navigator struct {
	auth AuthChecker
	log  *zap.Logger

	mu       sync.Mutex
	current  string
	onChange func(from, to string)
}

// NewNavigator starts at the login view.
func NewNavigator(auth AuthChecker, log *zap.Logger) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Navigator{auth: auth, log: log, current: PathLogin}
}

// OnChange registers fn to be called after every view change.
func (n *Navigator) OnChange(fn func(from, to string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Current returns the view being shown.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate resolves path against the current session and switches to it.
func (n *Navigator) Navigate(path string) string {
	return n.set(Resolve(path, n.auth.IsAuthenticated()))
}

// SessionInvalidated forces the login view.
func (n *Navigator) SessionInvalidated(reason error) {
	n.log.Info("re-authentication required", zap.Error(reason))
	n.set(PathLogin)
}

func (n *Navigator) set(to string) string {
	n.mu.Lock()
	from := n.current
	n.current = to
	fn := n.onChange
	n.mu.Unlock()

	if fn != nil && from != to {
		fn(from, to)
	}
	return to
}
