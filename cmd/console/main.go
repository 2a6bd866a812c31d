// Command console is a terminal admin console for the users and job postings
// lists.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/config"
	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/metrics"
	"github.com/and161185/admin-console/internal/migrate"
	"github.com/and161185/admin-console/internal/repository"
	"github.com/and161185/admin-console/internal/repository/file"
	"github.com/and161185/admin-console/internal/repository/memory"
	"github.com/and161185/admin-console/internal/repository/postgres"
	"github.com/and161185/admin-console/internal/repository/redis"
	"github.com/and161185/admin-console/internal/service"
	"github.com/and161185/admin-console/internal/session"
	"github.com/and161185/admin-console/internal/transport"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage(w io.Writer) {
	fmt.Fprintf(w, `console
Usage:
  console [-config file] [-addr URL] [-store file|memory|postgres|redis] [-dsn DSN] [-redis ADDR] [-metrics-addr ADDR] [-v] <cmd> [args]

Commands:
  version
  login   -u <email> -p <password>                 (saves session)
  logout
  status
  users   [-page N] [-size N] [-email s] [-name s] [-role ADMIN|ACADEMY|TEACHER] [-deleted true|false] [-json]
  jobs    [-page N] [-size N] [-sort field] [-order ASC|DESC] [-q text] [-loc ONLINE,OFFLINE]
          [-kindergarten] [-elementary] [-middle] [-high] [-adult] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-json]
  show    -kind user|job -id <id>
  shell                                            (interactive)
`)
}

// app holds everything a subcommand needs.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	kv       repository.KVRepository
	closeKV  func()
	sessions *session.Store
	client   *transport.Client
	auth     *service.AuthServiceImpl
	records  *service.Records
	reg      *prometheus.Registry
	metrics  *metrics.Metrics
	out      io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (*app, error) {
	kv, closeKV, err := openKV(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	sessions, err := session.Open(ctx, kv, session.WithLogger(log))
	if err != nil {
		closeKV()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client, err := transport.New(cfg.API.URL, sessions,
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithLogger(log),
		transport.WithMetrics(m),
	)
	if err != nil {
		closeKV()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		kv:       kv,
		closeKV:  closeKV,
		sessions: sessions,
		client:   client,
		auth:     service.NewAuthService(client, sessions, cfg.Session.FallbackTTL, log),
		records:  service.NewRecords(client),
		reg:      reg,
		metrics:  m,
		out:      out,
	}, nil
}

func (a *app) Close() { a.closeKV() }

// openKV opens the configured session backend. The returned func releases it.
func openKV(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.KVRepository, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return memory.NewKVRepo(), func() {}, nil

	case config.BackendPostgres:
		ver, err := migrate.Up(ctx, cfg.Session.DSN, log)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		log.Debug("session schema", zap.Int64("version", ver))
		db, err := postgres.New(ctx, cfg.Session.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return postgres.NewKVRepo(db), db.Close, nil

	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Session.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return redis.NewKVRepo(rdb, cfg.Session.RedisPrefix), func() { _ = rdb.Close() }, nil

	default:
		path := cfg.Session.Path
		if path == "" {
			path = file.DefaultPath()
		}
		log.Debug("session file", zap.String("path", path))
		return file.NewKVRepo(path), func() {}, nil
	}
}

// serveMetrics exposes the registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics listener", zap.Error(err))
		}
	}()
}

// run parses args and executes one subcommand. It returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", "", "API base URL")
	store := fs.String("store", "", "session backend: file|memory|postgres|redis")
	dsn := fs.String("dsn", "", "PostgreSQL DSN for -store postgres")
	redisAddr := fs.String("redis", "", "Redis address for -store redis")
	metricsAddr := fs.String("metrics-addr", "", "expose Prometheus metrics on this address")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "console %s (%s)\n", version, buildDate)
		return 0
	}

	cfg, err := config.Read(*cfgPath)
	if err != nil {
		return fail(stderr, err)
	}
	override(&cfg.API.URL, *addr)
	override(&cfg.Session.Backend, *store)
	override(&cfg.Session.DSN, *dsn)
	override(&cfg.Session.RedisAddr, *redisAddr)
	override(&cfg.Metrics.Addr, *metricsAddr)
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fail(stderr, err)
	}

	log, err := cfg.Logger()
	if err != nil {
		return fail(stderr, err)
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log, stdout)
	if err != nil {
		return fail(stderr, err)
	}
	defer a.Close()

	if cfg.Metrics.Addr != "" {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		serveMetrics(mctx, cfg.Metrics.Addr, a.reg, log)
	}

	switch cmd {
	case "login":
		err = a.cmdLogin(ctx, rest)
	case "logout":
		err = a.auth.Logout(ctx)
		if err == nil {
			fmt.Fprintln(stdout, "ok")
		}
	case "status":
		err = a.cmdStatus()
	case "users":
		err = a.cmdUsers(ctx, rest)
	case "jobs":
		err = a.cmdJobs(ctx, rest)
	case "show":
		err = a.cmdShow(ctx, rest)
	case "shell":
		err = newShell(a, stdin).Run(ctx)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		return fail(stderr, err)
	}
	return 0
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// main wires OS signals into run.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	u := fs.String("u", "", "email")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}
	sess, err := a.auth.Login(ctx, *u, *p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "ok, session valid until %s\n", sess.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (a *app) cmdStatus() error {
	st := struct {
		API           string     `json:"api"`
		Backend       string     `json:"backend"`
		Authenticated bool       `json:"authenticated"`
		ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	}{API: a.cfg.API.URL, Backend: a.cfg.Session.Backend, Authenticated: a.auth.IsAuthenticated()}
	if sess, ok := a.sessions.Get(); ok {
		st.ExpiresAt = &sess.ExpiresAt
	}
	printJSON(a.out, st)
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	kind := fs.String("kind", "user", "user|job")
	id := fs.Int64("id", 0, "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch strings.ToLower(*kind) {
	case "user", "users":
		u, err := a.records.GetUser(ctx, *id)
		if err != nil {
			return err
		}
		printJSON(a.out, u)
	case "job", "jobs", "job-post":
		jp, err := a.records.GetJobPost(ctx, *id)
		if err != nil {
			return err
		}
		printJSON(a.out, jp)
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	return nil
}

// ---- helpers ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(w io.Writer, err error) int {
	var se *errs.ServerError
	switch {
	case errs.IsSessionLoss(err):
		fmt.Fprintln(w, "not signed in or session expired; run: console login -u <email> -p <password>")
	case errors.As(err, &se):
		fmt.Fprintf(w, "api error: status=%d code=%s msg=%s\n", se.StatusCode, se.Code, se.Message)
	default:
		fmt.Fprintln(w, err)
	}
	return 1
}
