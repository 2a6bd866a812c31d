package devapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/admin-console/internal/config"
	"github.com/and161185/admin-console/internal/crypto"
	"github.com/and161185/admin-console/internal/model"
)

var testParams = crypto.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func testConfig() config.DevAPI {
	return config.DevAPI{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		ReportTTL:     true,
		MaxFailures:   3,
		BlockDuration: time.Minute,
	}
}

func newTestServer(t *testing.T, cfg config.DevAPI) *httptest.Server {
	t.Helper()
	s, err := Bootstrap(cfg, testParams, zaptest.NewLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

type rawEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, method, url, token string, body any) (int, rawEnvelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env rawEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func signIn(t *testing.T, base string) model.AuthData {
	t.Helper()
	code, env := call(t, http.MethodPost, base+"/api/v1/auth/sign-in", "", model.Credentials{Email: AdminEmail, Password: AdminPassword})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, CodeSuccess, env.Code)
	var data model.AuthData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(headerRequestID))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(b), "console_http_request_duration_seconds")
}

func TestSignIn(t *testing.T) {
	ts := newTestServer(t, testConfig())

	data := signIn(t, ts.URL)
	require.NotEmpty(t, data.AccessToken)
	require.Equal(t, int64(3_600_000), data.AccessTokenExpireTime)

	cfg := testConfig()
	cfg.ReportTTL = false
	quiet := newTestServer(t, cfg)
	require.Zero(t, signIn(t, quiet.URL).AccessTokenExpireTime)
}

func TestSignInRejectedThenRateLimited(t *testing.T) {
	ts := newTestServer(t, testConfig())
	url := ts.URL + "/api/v1/auth/sign-in"
	bad := model.Credentials{Email: AdminEmail, Password: "nope"}

	for i := 0; i < 2; i++ {
		code, env := call(t, http.MethodPost, url, "", bad)
		require.Equal(t, http.StatusUnauthorized, code)
		require.Equal(t, CodeBadCredentials, env.Code)
	}
	code, env := call(t, http.MethodPost, url, "", bad)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, CodeRateLimited, env.Code)

	code, _ = call(t, http.MethodPost, url, "", model.Credentials{Email: AdminEmail, Password: AdminPassword})
	require.Equal(t, http.StatusTooManyRequests, code)

	code, env = call(t, http.MethodPost, url, "", model.Credentials{Email: "x@y"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, CodeBadRequest, env.Code)
}

func TestListsRequireToken(t *testing.T) {
	ts := newTestServer(t, testConfig())
	for _, p := range []string{"/api/v1/users", "/api/v1/job-posts", "/api/v1/users/1"} {
		code, env := call(t, http.MethodGet, ts.URL+p, "", nil)
		require.Equal(t, http.StatusUnauthorized, code, p)
		require.Equal(t, CodeUnauthenticated, env.Code)

		code, _ = call(t, http.MethodGet, ts.URL+p, "garbage", nil)
		require.Equal(t, http.StatusUnauthorized, code, p)
	}
}

func TestUsersTotalsShape(t *testing.T) {
	ts := newTestServer(t, testConfig())
	tok := signIn(t, ts.URL).AccessToken

	code, env := call(t, http.MethodGet, ts.URL+"/api/v1/users?pageNumber=4&rowCount=10", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var page totalsPage[model.User]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, int64(47), page.TotalElements)
	require.Equal(t, 5, page.TotalPages)
	require.Len(t, page.Content, 7)
	require.True(t, page.Last)
	require.Equal(t, int64(41), page.Content[0].ID)

	code, env = call(t, http.MethodGet, ts.URL+"/api/v1/users?roleType=ADMIN&deleted=false&sortBy=email&orderType=DESC", tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.NotEmpty(t, page.Content)
	for _, u := range page.Content {
		require.Equal(t, model.RoleAdmin, u.RoleType)
		require.False(t, u.Deleted)
	}
	require.Greater(t, page.Content[0].Email, page.Content[1].Email)

	code, env = call(t, http.MethodGet, ts.URL+"/api/v1/users?orderType=SIDEWAYS", tok, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, CodeBadRequest, env.Code)
}

func TestJobPostsSliceShape(t *testing.T) {
	ts := newTestServer(t, testConfig())
	tok := signIn(t, ts.URL).AccessToken

	var page slicePage[model.JobPost]
	_, env := call(t, http.MethodGet, ts.URL+"/api/v1/job-posts?pageNumber=0&rowCount=5&sortBy=dueDate&orderType=DESC", tok, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.True(t, page.First)
	require.False(t, page.Last)
	require.Equal(t, 23, page.NumberOfElements)
	require.Len(t, page.Content, 5)
	require.Greater(t, page.Content[0].DueDate, page.Content[1].DueDate)
	require.NotContains(t, string(env.Data), "totalElements")

	_, env = call(t, http.MethodGet, ts.URL+"/api/v1/job-posts?pageNumber=4&rowCount=5", tok, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.True(t, page.Last)
	require.Equal(t, 3, page.NumberOfElements)

	_, env = call(t, http.MethodGet, ts.URL+"/api/v1/job-posts?locationTypeList=ONLINE,HYBRID&forAdult=true&rowCount=50", tok, nil)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.NotEmpty(t, page.Content)
	for _, jp := range page.Content {
		require.True(t, jp.ForAdult)
		require.NotEqual(t, "OFFLINE", jp.LocationType)
	}
}

func TestGetByID(t *testing.T) {
	ts := newTestServer(t, testConfig())
	tok := signIn(t, ts.URL).AccessToken

	code, env := call(t, http.MethodGet, ts.URL+"/api/v1/job-posts/3", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var jp model.JobPost
	require.NoError(t, json.Unmarshal(env.Data, &jp))
	require.Equal(t, int64(3), jp.ID)

	code, env = call(t, http.MethodGet, ts.URL+"/api/v1/users/999", tok, nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, CodeNotFound, env.Code)

	code, _ = call(t, http.MethodGet, ts.URL+"/api/v1/users/abc", tok, nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, testConfig())
	tok := signIn(t, ts.URL).AccessToken

	code, env := call(t, http.MethodGet, ts.URL+"/api/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		ID       int64  `json:"id"`
		Email    string `json:"email"`
		RoleType string `json:"roleType"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, int64(1), me.ID)
	require.Equal(t, AdminEmail, me.Email)
	require.Equal(t, "ADMIN", me.RoleType)
}

func TestRecover(t *testing.T) {
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), CodeInternal))
}

func TestAccountIDContext(t *testing.T) {
	_, ok := AccountIDFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.False(t, ok)

	ctx := WithAccountID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 7)
	id, ok := AccountIDFromCtx(ctx)
	require.True(t, ok)
	require.Equal(t, int64(7), id)
}
