package router

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/listsync"
)

var _ listsync.SessionListener = (*Navigator)(nil)

func TestResolve(t *testing.T) {
	cases := []struct {
		path   string
		authed bool
		want   string
	}{
		{"/", false, PathLogin},
		{"/users", false, PathLogin},
		{"/job-posts", false, PathLogin},
		{"/login", false, PathLogin},
		{"/nope", false, PathLogin},
		{"/", true, PathUsers},
		{"", true, PathUsers},
		{"/login", true, PathUsers},
		{"/users", true, PathUsers},
		{"users/", true, PathUsers},
		{"/job-posts?page=2", true, PathJobPosts},
		{"/nope", true, PathLogin},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Resolve(tc.path, tc.authed), "%q authed=%v", tc.path, tc.authed)
	}
}

type authFlag struct{ ok atomic.Bool }

func (a *authFlag) IsAuthenticated() bool { return a.ok.Load() }

func TestNavigator(t *testing.T) {
	auth := &authFlag{}
	n := NewNavigator(auth, zaptest.NewLogger(t))
	require.Equal(t, PathLogin, n.Current())

	var changes []string
	n.OnChange(func(from, to string) { changes = append(changes, from+">"+to) })

	require.Equal(t, PathLogin, n.Navigate(PathUsers))
	require.Empty(t, changes)

	auth.ok.Store(true)
	require.Equal(t, PathUsers, n.Navigate(PathLogin))
	require.Equal(t, PathJobPosts, n.Navigate(PathJobPosts))

	n.SessionInvalidated(errs.ErrUnauthorized)
	require.Equal(t, PathLogin, n.Current())
	require.Equal(t, []string{"/login>/users", "/users>/job-posts", "/job-posts>/login"}, changes)
}
