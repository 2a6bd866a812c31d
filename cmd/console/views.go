package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/listsync"
	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/pagination"
	"github.com/and161185/admin-console/internal/service"
)

// maxVisiblePages is the width of the page selector.
const maxVisiblePages = 5

// ------- filter parsing -------

// parseFilters turns k=v arguments into controller filters. "true"/"false"
// become booleans, comma-separated values become lists.
func parseFilters(args []string) (listsync.Filters, error) {
	f := listsync.Filters{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q: want key=value", a)
		}
		v = strings.TrimSpace(v)
		switch {
		case v == "":
			delete(f, k)
		case v == "true" || v == "false":
			f[k] = v == "true"
		case strings.Contains(v, ","):
			f[k] = splitList(v)
		default:
			f[k] = v
		}
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, v)
}

// ------- one-shot list commands -------

// listOnce fetches filters at page (0-based) through a fresh controller.
func listOnce[T any](ctx context.Context, a *app, res listsync.Resource, f listsync.Filters, page int) (listsync.View[T], error) {
	var lost error
	c := listsync.New[T](res, a.client, a.sessions, listsync.ListenerFunc(func(reason error) { lost = reason }),
		listsync.WithLogger(a.log),
		listsync.WithMetrics(a.metrics),
		listsync.WithSuccessCode(a.cfg.API.SuccessCode),
	)
	c.SetFilters(ctx, f)
	c.Wait()
	if page > 0 && c.State().Status == listsync.StatusSucceeded {
		if !c.GoToPage(ctx, page) {
			p, _ := c.Pages()
			return c.View(), fmt.Errorf("page %d out of range (1..%d)", page+1, p.Total)
		}
		c.Wait()
	}

	v := c.View()
	switch {
	case lost != nil:
		return v, lost
	case v.Status == listsync.StatusFailed:
		return v, v.Err
	}
	return v, nil
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number (1-based)")
	size := fs.Int("size", 0, "rows per page")
	email := fs.String("email", "", "email contains")
	name := fs.String("name", "", "name contains")
	role := fs.String("role", "", "ADMIN|ACADEMY|TEACHER")
	deleted := fs.String("deleted", "", "true|false")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	uf := service.UserFilters{Email: *email, Name: *name, RoleType: model.RoleType(strings.ToUpper(*role))}
	if *deleted != "" {
		b, err := strconv.ParseBool(*deleted)
		if err != nil {
			return fmt.Errorf("-deleted: %w", err)
		}
		uf.Deleted = &b
	}
	res := service.UsersResource
	if *size > 0 {
		res.DefaultPageSize = *size
	}

	v, err := listOnce[model.User](ctx, a, res, uf.Filters(), *page-1)
	if err != nil {
		return err
	}
	if *asJSON {
		printJSON(a.out, v)
		return nil
	}
	renderUsers(a.out, v)
	return nil
}

func (a *app) cmdJobs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number (1-based)")
	size := fs.Int("size", 0, "rows per page")
	sortBy := fs.String("sort", "", "sort field (default dueDate)")
	order := fs.String("order", "", "ASC|DESC (default DESC)")
	q := fs.String("q", "", "search text")
	loc := fs.String("loc", "", "location types, comma-separated")
	kg := fs.Bool("kindergarten", false, "for kindergarten")
	el := fs.Bool("elementary", false, "for elementary school")
	ms := fs.Bool("middle", false, "for middle school")
	hs := fs.Bool("high", false, "for high school")
	ad := fs.Bool("adult", false, "for adults")
	from := fs.String("from", "", "due date from (YYYY-MM-DD)")
	to := fs.String("to", "", "due date to (YYYY-MM-DD)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fromT, err := parseDate(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	toT, err := parseDate(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	jf := service.JobFilters{
		SearchText:      *q,
		LocationTypes:   splitList(*loc),
		ForKindergarten: *kg,
		ForElementary:   *el,
		ForMiddleSchool: *ms,
		ForHighSchool:   *hs,
		ForAdult:        *ad,
		FromDueDate:     fromT,
		ToDueDate:       toT,
	}

	res := service.JobPostsResource
	if *size > 0 {
		res.DefaultPageSize = *size
	}
	if *sortBy != "" {
		res.DefaultSortBy = *sortBy
	}
	if *order != "" {
		res.DefaultSortOrder = strings.ToUpper(*order)
	}

	v, err := listOnce[model.JobPost](ctx, a, res, jf.Filters(), *page-1)
	if err != nil {
		return err
	}
	if *asJSON {
		printJSON(a.out, v)
		return nil
	}
	renderJobs(a.out, v)
	return nil
}

// ------- rendering -------

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func yn(b bool) string {
	if b {
		return "y"
	}
	return "."
}

func statusLine[T any](w io.Writer, title string, v listsync.View[T]) {
	fmt.Fprintf(w, "%s  page %d/%d  [%s]", title, v.Page+1, max(v.TotalPages, 1), v.Status)
	if v.Err != nil {
		fmt.Fprintf(w, " %v", v.Err)
	}
	fmt.Fprintln(w)
}

func renderUsers(w io.Writer, v listsync.View[model.User]) {
	statusLine(w, "users", v)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tFIRST\tLAST\tROLE\tDELETED")
	for _, u := range v.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%v\n", u.ID, u.Email, deref(u.FirstName), deref(u.LastName), u.RoleType, u.Deleted)
	}
	_ = tw.Flush()
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "(no rows)")
	}
	fmt.Fprintln(w, pager(v.Page, v.TotalPages))
}

func renderJobs(w io.Writer, v listsync.View[model.JobPost]) {
	statusLine(w, "job posts", v)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tACADEMY\tDUE\tLOCATION\tK E M H A")
	for _, jp := range v.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s %s %s %s %s\n", jp.ID, jp.Title, jp.AcademyName, jp.DueDate, jp.LocationType,
			yn(jp.ForKindergarten), yn(jp.ForElementary), yn(jp.ForMiddleSchool), yn(jp.ForHighSchool), yn(jp.ForAdult))
	}
	_ = tw.Flush()
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "(no rows)")
	}
	fmt.Fprintln(w, pager(v.Page, v.TotalPages))
}

// pager renders the page selector, e.g. "« ‹ 1 [2] 3 4 5 › »". Pages are
// shown 1-based.
func pager(current, total int) string {
	p := pagination.Page{Current: current, Total: total}
	var b strings.Builder
	if p.HasPrev() {
		b.WriteString("« ‹ ")
	}
	start, end := pagination.Window(current, total, maxVisiblePages)
	for i := start; i <= end; i++ {
		if i == current {
			fmt.Fprintf(&b, "[%d] ", i+1)
		} else {
			fmt.Fprintf(&b, "%d ", i+1)
		}
	}
	if p.HasNext() {
		b.WriteString("› »")
	}
	return strings.TrimSpace(b.String())
}

func describe(err error) string {
	var se *errs.ServerError
	switch {
	case errs.IsSessionLoss(err):
		return "session ended; sign in with: login <email> <password>"
	case errors.As(err, &se):
		return fmt.Sprintf("api error %s: %s", se.Code, se.Message)
	default:
		return err.Error()
	}
}
