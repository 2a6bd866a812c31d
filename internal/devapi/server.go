// Package devapi is a local stand-in for the admin API: sign-in, users and
// job postings with the response shapes the console has to normalize.
package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/config"
	"github.com/and161185/admin-console/internal/crypto"
	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/limiter"
	"github.com/and161185/admin-console/internal/metrics"
	"github.com/and161185/admin-console/internal/model"
)

// Envelope codes.
const (
	CodeSuccess         = model.CodeSuccess
	CodeBadRequest      = "CM-002"
	CodeNotFound        = "CM-004"
	CodeInternal        = "CM-500"
	CodeUnauthenticated = "AU-001"
	CodeBadCredentials  = "AU-002"
	CodeRateLimited     = "AU-003"
)

// Seeded operator account.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin1234"
)

// Server serves the API double.
type Server struct {
	auth      *Auth
	store     *Store
	log       *zap.Logger
	reg       *prometheus.Registry
	metrics   *metrics.Metrics
	reportTTL bool
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithReportTTL controls whether sign-in reports accessTokenExpireTime. When
// off, clients have to read the token's exp claim.
func WithReportTTL(on bool) Option { return func(s *Server) { s.reportTTL = on } }

// New constructs a Server over auth and store.
func New(auth *Auth, store *Store, opts ...Option) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		auth:      auth,
		store:     store,
		log:       zap.NewNop(),
		reg:       reg,
		metrics:   metrics.New(reg),
		reportTTL: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Bootstrap builds a seeded server from cfg: 47 users, 23 job postings and
// the admin account.
func Bootstrap(cfg config.DevAPI, params crypto.Params, log *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("devapi: empty jwt secret")
	}
	lim := limiter.NewMemory(cfg.BlockDuration, cfg.MaxFailures, cfg.BlockDuration)
	auth := NewAuth(params, []byte(cfg.JWTSecret), cfg.TokenTTL, lim)
	if _, err := auth.Register(AdminEmail, AdminPassword, model.RoleAdmin); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	store := NewStore()
	Seed(store, 47, 23)
	return New(auth, store, WithLogger(log), WithReportTTL(cfg.ReportTTL)), nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Logging(s.log, s.metrics), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/sign-in", s.handleSignIn)

		r.With(s.authMiddleware).Get("/auth/me", s.handleMe)
		r.With(s.authMiddleware).Get("/users", s.handleListUsers)
		r.With(s.authMiddleware).Get("/users/{id}", s.handleGetUser)
		r.With(s.authMiddleware).Get("/job-posts", s.handleListJobPosts)
		r.With(s.authMiddleware).Get("/job-posts/{id}", s.handleGetJobPost)
	})
	return r
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, "invalid body", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, "email and password are required", nil)
		return
	}

	tok, ttl, err := s.auth.LoginWithIP(r.Context(), req.Email, req.Password, remoteIP(r))
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		writeEnvelope(w, http.StatusTooManyRequests, CodeRateLimited, "too many attempts", nil)
		return
	case errors.Is(err, errs.ErrUnauthorized):
		writeEnvelope(w, http.StatusUnauthorized, CodeBadCredentials, "bad credentials", nil)
		return
	case err != nil:
		s.log.Error("sign in", zap.Error(err))
		writeEnvelope(w, http.StatusInternalServerError, CodeInternal, "internal", nil)
		return
	}

	data := model.AuthData{AccessToken: tok}
	if s.reportTTL {
		data.AccessTokenExpireTime = ttl.Milliseconds()
	}
	writeEnvelope(w, http.StatusOK, CodeSuccess, "signed in", data)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := AccountIDFromCtx(r.Context())
	if !ok {
		writeEnvelope(w, http.StatusUnauthorized, CodeUnauthenticated, "missing token", nil)
		return
	}
	acc, err := s.auth.Account(id)
	if err != nil {
		writeEnvelope(w, http.StatusNotFound, CodeNotFound, "account not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", map[string]any{
		"id":       acc.ID,
		"email":    acc.Email,
		"roleType": acc.Role,
	})
}

type pageable struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// totalsPage carries totalElements; the users list uses it.
type totalsPage[T any] struct {
	Content          []T      `json:"content"`
	TotalElements    int64    `json:"totalElements"`
	TotalPages       int      `json:"totalPages"`
	Size             int      `json:"size"`
	Number           int      `json:"number"`
	NumberOfElements int      `json:"numberOfElements"`
	First            bool     `json:"first"`
	Last             bool     `json:"last"`
	Empty            bool     `json:"empty"`
	Pageable         pageable `json:"pageable"`
}

// slicePage has no totals. On the first page numberOfElements is the number
// of matching records, elsewhere the number of records on the page.
type slicePage[T any] struct {
	Content          []T      `json:"content"`
	Size             int      `json:"size"`
	Number           int      `json:"number"`
	NumberOfElements int      `json:"numberOfElements"`
	First            bool     `json:"first"`
	Last             bool     `json:"last"`
	Empty            bool     `json:"empty"`
	Pageable         pageable `json:"pageable"`
}

type listParams struct {
	page, size int
	sort       Sort
}

func parseListParams(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	p := listParams{size: 10}
	var err error
	if v := q.Get("pageNumber"); v != "" {
		if p.page, err = strconv.Atoi(v); err != nil || p.page < 0 {
			return p, fmt.Errorf("pageNumber %q", v)
		}
	}
	if v := q.Get("rowCount"); v != "" {
		if p.size, err = strconv.Atoi(v); err != nil || p.size < 1 || p.size > 500 {
			return p, fmt.Errorf("rowCount %q", v)
		}
	}
	p.sort.By = q.Get("sortBy")
	switch strings.ToUpper(q.Get("orderType")) {
	case "", "ASC":
	case "DESC":
		p.sort.Desc = true
	default:
		return p, fmt.Errorf("orderType %q", q.Get("orderType"))
	}
	return p, nil
}

func window[T any](all []T, page, size int) []T {
	start := page * size
	if start >= len(all) {
		return []T{}
	}
	end := min(start+size, len(all))
	return all[start:end]
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	q := r.URL.Query()
	uq := UserQuery{Email: q.Get("email"), Name: q.Get("name"), RoleType: q.Get("roleType")}
	if v := q.Get("deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("deleted %q", v), nil)
			return
		}
		uq.Deleted = &b
	}

	all := s.store.Users(uq, p.sort)
	content := window(all, p.page, p.size)
	totalPages := (len(all) + p.size - 1) / p.size
	writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", totalsPage[model.User]{
		Content:          content,
		TotalElements:    int64(len(all)),
		TotalPages:       totalPages,
		Size:             p.size,
		Number:           p.page,
		NumberOfElements: len(content),
		First:            p.page == 0,
		Last:             p.page >= totalPages-1,
		Empty:            len(content) == 0,
		Pageable:         pageable{PageNumber: p.page, PageSize: p.size},
	})
}

func (s *Server) handleListJobPosts(w http.ResponseWriter, r *http.Request) {
	p, err := parseListParams(r)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	q := r.URL.Query()
	jq := JobQuery{
		SearchText:  q.Get("searchText"),
		FromDueDate: q.Get("fromDueDate"),
		ToDueDate:   q.Get("toDueDate"),
	}
	if v := q.Get("locationTypeList"); v != "" {
		jq.LocationTypes = strings.Split(v, ",")
	}
	for _, flag := range []string{"forKindergarten", "forElementary", "forMiddleSchool", "forHighSchool", "forAdult"} {
		if b, err := strconv.ParseBool(q.Get(flag)); err == nil && b {
			jq.Audience = append(jq.Audience, flag)
		}
	}

	all := s.store.JobPosts(jq, p.sort)
	content := window(all, p.page, p.size)
	n := len(content)
	if p.page == 0 {
		n = len(all)
	}
	writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", slicePage[model.JobPost]{
		Content:          content,
		Size:             p.size,
		Number:           p.page,
		NumberOfElements: n,
		First:            p.page == 0,
		Last:             (p.page+1)*p.size >= len(all),
		Empty:            len(content) == 0,
		Pageable:         pageable{PageNumber: p.page, PageSize: p.size},
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, "invalid id", nil)
		return
	}
	u, err := s.store.GetUser(id)
	if err != nil {
		writeEnvelope(w, http.StatusNotFound, CodeNotFound, "user not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", u)
}

func (s *Server) handleGetJobPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, CodeBadRequest, "invalid id", nil)
		return
	}
	jp, err := s.store.GetJobPost(id)
	if err != nil {
		writeEnvelope(w, http.StatusNotFound, CodeNotFound, "job post not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, CodeSuccess, "ok", jp)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, data any) {
	writeJSON(w, status, envelope{Code: code, Message: message, Data: data})
}
