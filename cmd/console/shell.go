package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/and161185/admin-console/internal/listsync"
	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/router"
	"github.com/and161185/admin-console/internal/service"
)

const shellHelp = `commands:
  open /users | /job-posts      switch view
  filter key=value ...          replace filters (value "" removes a key)
  reset                         clear filters
  page N                        go to page N (1-based)
  next | prev | first | last
  sort FIELD [ASC|DESC]
  size N
  refresh
  login EMAIL PASSWORD
  logout
  help
  quit
`

// shell is an interactive session over both lists. The navigator decides
// which list is on screen; list controllers report session loss to it.
type shell struct {
	app   *app
	in    *bufio.Scanner
	out   io.Writer
	nav   *router.Navigator
	users *listsync.Controller[model.User]
	jobs  *listsync.Controller[model.JobPost]
}

func newShell(a *app, in io.Reader) *shell {
	nav := router.NewNavigator(a.auth, a.log)
	opts := []listsync.Option{
		listsync.WithLogger(a.log),
		listsync.WithMetrics(a.metrics),
		listsync.WithSuccessCode(a.cfg.API.SuccessCode),
	}
	s := &shell{
		app:   a,
		in:    bufio.NewScanner(in),
		out:   a.out,
		nav:   nav,
		users: listsync.New[model.User](service.UsersResource, a.client, a.sessions, nav, opts...),
		jobs:  listsync.New[model.JobPost](service.JobPostsResource, a.client, a.sessions, nav, opts...),
	}
	nav.OnChange(func(from, to string) {
		if to == router.PathLogin && from != router.PathLogin {
			fmt.Fprintln(s.out, "session ended")
		}
	})
	return s
}

// Run reads commands until EOF, quit, or ctx is done.
func (s *shell) Run(ctx context.Context) error {
	s.enter(ctx, router.PathRoot)
	for {
		fmt.Fprintf(s.out, "%s> ", s.nav.Current())
		if ctx.Err() != nil || !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if quit := s.exec(ctx, strings.Fields(line)); quit {
			return nil
		}
	}
}

// enter navigates and loads the list shown at the destination.
func (s *shell) enter(ctx context.Context, path string) {
	switch s.nav.Navigate(path) {
	case router.PathUsers:
		s.users.Refresh(ctx)
		s.show()
	case router.PathJobPosts:
		s.jobs.Refresh(ctx)
		s.show()
	default:
		fmt.Fprintln(s.out, "sign in with: login <email> <password>")
	}
}

// list is the controller behind the current view, if any.
type list interface {
	SetFilters(ctx context.Context, f listsync.Filters)
	ResetFilters(ctx context.Context)
	SetSort(ctx context.Context, by, order string)
	SetPageSize(ctx context.Context, n int) bool
	GoToPage(ctx context.Context, n int) bool
	NextPage(ctx context.Context) bool
	PrevPage(ctx context.Context) bool
	FirstPage(ctx context.Context) bool
	LastPage(ctx context.Context) bool
	Refresh(ctx context.Context)
	Wait()
}

func (s *shell) current() list {
	switch s.nav.Current() {
	case router.PathUsers:
		return s.users
	case router.PathJobPosts:
		return s.jobs
	}
	return nil
}

// show waits for outstanding fetches and renders the current view.
func (s *shell) show() {
	switch s.nav.Current() {
	case router.PathUsers:
		s.users.Wait()
		if s.nav.Current() == router.PathUsers {
			renderUsers(s.out, s.users.View())
		}
	case router.PathJobPosts:
		s.jobs.Wait()
		if s.nav.Current() == router.PathJobPosts {
			renderJobs(s.out, s.jobs.View())
		}
	}
}

func (s *shell) exec(ctx context.Context, f []string) (quit bool) {
	cmd, args := strings.ToLower(f[0]), f[1:]
	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprint(s.out, shellHelp)
		return false
	case "open":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: open /users | /job-posts")
			return false
		}
		s.enter(ctx, args[0])
		return false
	case "login":
		if len(args) != 2 {
			fmt.Fprintln(s.out, "usage: login EMAIL PASSWORD")
			return false
		}
		if _, err := s.app.auth.Login(ctx, args[0], args[1]); err != nil {
			fmt.Fprintln(s.out, describe(err))
			return false
		}
		s.enter(ctx, router.PathLogin)
		return false
	case "logout":
		if err := s.app.auth.Logout(ctx); err != nil {
			fmt.Fprintln(s.out, describe(err))
		}
		s.enter(ctx, router.PathLogin)
		return false
	}

	l := s.current()
	if l == nil {
		fmt.Fprintln(s.out, "no list open; sign in first")
		return false
	}

	moved := true
	switch cmd {
	case "filter":
		fl, err := parseFilters(args)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		l.SetFilters(ctx, fl)
	case "reset":
		l.ResetFilters(ctx)
	case "page":
		n, err := intArg(args)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		moved = l.GoToPage(ctx, n-1)
	case "next":
		moved = l.NextPage(ctx)
	case "prev":
		moved = l.PrevPage(ctx)
	case "first":
		moved = l.FirstPage(ctx)
	case "last":
		moved = l.LastPage(ctx)
	case "sort":
		if len(args) < 1 || len(args) > 2 {
			fmt.Fprintln(s.out, "usage: sort FIELD [ASC|DESC]")
			return false
		}
		order := "ASC"
		if len(args) == 2 {
			order = strings.ToUpper(args[1])
		}
		l.SetSort(ctx, args[0], order)
	case "size":
		n, err := intArg(args)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		if !l.SetPageSize(ctx, n) {
			fmt.Fprintln(s.out, "size must be positive")
			return false
		}
	case "refresh":
		l.Refresh(ctx)
	default:
		fmt.Fprintf(s.out, "unknown command %q; try help\n", cmd)
		return false
	}
	if !moved {
		fmt.Fprintln(s.out, "no such page")
		return false
	}
	s.show()
	return false
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", args[0])
	}
	return n, nil
}
