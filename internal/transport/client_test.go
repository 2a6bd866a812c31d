package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/metrics"
	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/repository/memory"
	"github.com/and161185/admin-console/internal/session"
)

func newStore(t *testing.T, now func() time.Time) *session.Store {
	t.Helper()
	opts := []session.Option{}
	if now != nil {
		opts = append(opts, session.WithClock(now))
	}
	s, err := session.Open(context.Background(), memory.NewKVRepo(), opts...)
	require.NoError(t, err)
	return s
}

func writeEnvelope(w http.ResponseWriter, status int, code, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(model.Envelope{Code: code, Message: msg, Data: raw})
}

func TestSend_AttachesCredentialAndQuery(t *testing.T) {
	t.Parallel()
	var gotAuth, gotQuery, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotID = r.Header.Get(HeaderRequestID)
		writeEnvelope(w, http.StatusOK, model.CodeSuccess, "ok", map[string]int{"n": 1})
	}))
	defer srv.Close()

	store := newStore(t, nil)
	require.NoError(t, store.Set(context.Background(), "tok", time.Hour))
	c, err := New(srv.URL, store, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), http.MethodGet, "/api/v1/users", url.Values{"pageNumber": {"0"}}, nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "pageNumber=0", gotQuery)
	require.NotEmpty(t, gotID)

	var data struct{ N int }
	require.NoError(t, DecodeEnvelope(resp, model.CodeSuccess, &data))
	require.Equal(t, 1, data.N)
}

func TestSend_NoSessionFailsFastWithoutNetwork(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c, err := New(srv.URL, newStore(t, nil))
	require.NoError(t, err)

	_, err = c.Send(context.Background(), http.MethodGet, "/api/v1/users", nil, nil)
	require.ErrorIs(t, err, errs.ErrSessionMissing)
	require.Zero(t, hits.Load())
}

func TestSend_ExpiredSessionIsClearedAndNotSent(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newStore(t, func() time.Time { return now })
	require.NoError(t, store.Set(context.Background(), "tok", time.Minute))
	now = now.Add(2 * time.Minute)

	c, err := New(srv.URL, store)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), http.MethodGet, "/x", nil, nil)
	require.ErrorIs(t, err, errs.ErrSessionMissing)
	require.Zero(t, hits.Load())
	_, ok := store.Get()
	require.False(t, ok)
}

func TestSend_UnauthorizedClearsSession(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newStore(t, nil)
	require.NoError(t, store.Set(context.Background(), "tok", time.Hour))
	c, err := New(srv.URL, store)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), http.MethodGet, "/api/v1/users", nil, nil)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.False(t, store.IsValid())
	_, ok := store.Get()
	require.False(t, ok)
}

func TestSend_ServerErrorCarriesEnvelope(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, "CM-500", "db down", nil)
	}))
	defer srv.Close()

	store := newStore(t, nil)
	require.NoError(t, store.Set(context.Background(), "tok", time.Hour))
	c, err := New(srv.URL, store)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), http.MethodGet, "/x", nil, nil)
	var se *errs.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Equal(t, "CM-500", se.Code)
	require.Equal(t, "db down", se.Message)
	require.True(t, store.IsValid(), "ordinary failures keep the session")
}

func TestSend_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	store := newStore(t, nil)
	require.NoError(t, store.Set(context.Background(), "tok", time.Hour))
	c, err := New(addr, store)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), http.MethodGet, "/x", nil, nil)
	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	require.NotNil(t, errors.Unwrap(err))
}

func TestSendAnonymous_401IsServerError(t *testing.T) {
	t.Parallel()
	var gotBody model.Credentials
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, http.StatusUnauthorized, "AU-001", "bad credentials", nil)
	}))
	defer srv.Close()

	c, err := New(srv.URL, newStore(t, nil))
	require.NoError(t, err)

	_, err = c.SendAnonymous(context.Background(), http.MethodPost, "/api/v1/auth/sign-in", nil,
		model.Credentials{Email: "a@b.c", Password: "pw"})
	require.NotErrorIs(t, err, errs.ErrUnauthorized)
	var se *errs.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "AU-001", se.Code)
	require.Equal(t, "a@b.c", gotBody.Email)
	require.Empty(t, gotAuth)
	require.Equal(t, "application/json", gotType)
}

func TestDecodeEnvelope_CodeMismatchOn200(t *testing.T) {
	t.Parallel()
	resp := &Response{StatusCode: 200, Body: []byte(`{"code":"CM-404","message":"nope","data":null}`)}
	err := DecodeEnvelope(resp, model.CodeSuccess, nil)
	var se *errs.ServerError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "CM-404", se.Code)
	require.Equal(t, 200, se.StatusCode)

	require.Error(t, DecodeEnvelope(&Response{StatusCode: 200, Body: []byte("<html>")}, model.CodeSuccess, nil))
	require.NoError(t, DecodeEnvelope(&Response{StatusCode: 200, Body: []byte(`{"code":"CM-001"}`)}, model.CodeSuccess, &struct{}{}))
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	_, err := New("localhost:8080", newStore(t, nil))
	require.Error(t, err)
}

func TestLoggingTransport_RecordsMetrics(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, model.CodeSuccess, "", nil)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	c, err := New(srv.URL, newStore(t, nil), WithMetrics(m), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.SendAnonymous(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, testutil.CollectAndCount(m.Requests))
}
