package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/admin-console/internal/config"
	"github.com/and161185/admin-console/internal/crypto"
	"github.com/and161185/admin-console/internal/devapi"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "admin-console")
}

func startAPI(t *testing.T) string {
	t.Helper()
	cfg := config.DevAPI{JWTSecret: "cli", TokenTTL: time.Hour, ReportTTL: true, MaxFailures: 5, BlockDuration: time.Minute}
	srv, err := devapi.Bootstrap(cfg, crypto.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}, zaptest.NewLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

func Test_version(t *testing.T) {
	r := runCLI(t, "", "version")
	require.Equal(t, 0, r.code)
	require.Contains(t, r.stdout, "console dev")
}

func Test_usage(t *testing.T) {
	r := runCLI(t, "")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "Commands:")

	withTmpConfig(t)
	r = runCLI(t, "", "-addr", "http://127.0.0.1:1", "bogus")
	require.Equal(t, 2, r.code)
}

func Test_invalidConfig(t *testing.T) {
	withTmpConfig(t)
	r := runCLI(t, "", "-store", "etcd", "status")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "unknown session backend")

	r = runCLI(t, "", "-config", filepath.Join(t.TempDir(), "missing.yaml"), "status")
	require.Equal(t, 1, r.code)
}

func Test_loginStatusLogout_FileStore(t *testing.T) {
	base := withTmpConfig(t)
	api := startAPI(t)

	r := runCLI(t, "", "-addr", api, "users")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "not signed in")

	r = runCLI(t, "", "-addr", api, "login", "-u", devapi.AdminEmail, "-p", "wrong")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, devapi.CodeBadCredentials)

	r = runCLI(t, "", "-addr", api, "login", "-u", devapi.AdminEmail, "-p", devapi.AdminPassword)
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "ok, session valid until")

	st, err := os.Stat(filepath.Join(base, "session.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	r = runCLI(t, "", "-addr", api, "status")
	require.Equal(t, 0, r.code)
	var status struct {
		Authenticated bool       `json:"authenticated"`
		Backend       string     `json:"backend"`
		ExpiresAt     *time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &status))
	require.True(t, status.Authenticated)
	require.Equal(t, config.BackendFile, status.Backend)
	require.NotNil(t, status.ExpiresAt)

	r = runCLI(t, "", "-addr", api, "logout")
	require.Equal(t, 0, r.code)
	r = runCLI(t, "", "-addr", api, "status")
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &status))
	require.False(t, status.Authenticated)
}

func Test_usersAndJobs(t *testing.T) {
	withTmpConfig(t)
	api := startAPI(t)
	require.Equal(t, 0, runCLI(t, "", "-addr", api, "login", "-u", devapi.AdminEmail, "-p", devapi.AdminPassword).code)

	r := runCLI(t, "", "-addr", api, "users", "-page", "5")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "users  page 5/5  [succeeded]")
	require.Contains(t, r.stdout, "user47@example.com")
	require.Contains(t, r.stdout, "« ‹ 1 2 3 4 [5]")

	r = runCLI(t, "", "-addr", api, "users", "-page", "9")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "out of range")

	r = runCLI(t, "", "-addr", api, "users", "-role", "teacher", "-json")
	require.Equal(t, 0, r.code, r.stderr)
	var v struct {
		Items []struct {
			RoleType string `json:"roleType"`
		}
		TotalPages int
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v))
	require.NotEmpty(t, v.Items)
	for _, it := range v.Items {
		require.Equal(t, "TEACHER", it.RoleType)
	}

	r = runCLI(t, "", "-addr", api, "jobs", "-adult", "-size", "3")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "job posts  page 1/3  [succeeded]")

	r = runCLI(t, "", "-addr", api, "jobs", "-from", "not-a-date")
	require.Equal(t, 1, r.code)

	r = runCLI(t, "", "-addr", api, "show", "-kind", "user", "-id", "3")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "user03@example.com")

	r = runCLI(t, "", "-addr", api, "show", "-kind", "job", "-id", "999")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "not found")
}

func Test_shell(t *testing.T) {
	withTmpConfig(t)
	api := startAPI(t)

	script := strings.Join([]string{
		"next",
		"login " + devapi.AdminEmail + " " + devapi.AdminPassword,
		"last",
		"next",
		"filter roleType=ADMIN deleted=false",
		"open /job-posts",
		"sort title ASC",
		"size 0",
		"page 2",
		"bogus",
		"logout",
		"quit",
	}, "\n")
	r := runCLI(t, script, "-addr", api, "shell")
	require.Equal(t, 0, r.code, r.stderr)

	out := r.stdout
	require.Contains(t, out, "no list open; sign in first")
	require.Contains(t, out, "users  page 1/5  [succeeded]")
	require.Contains(t, out, "users  page 5/5  [succeeded]")
	require.Contains(t, out, "no such page")
	require.Contains(t, out, "users  page 1/2  [succeeded]")
	require.Contains(t, out, "job posts  page 1/5  [succeeded]")
	require.Contains(t, out, "size must be positive")
	require.Contains(t, out, "job posts  page 2/5  [succeeded]")
	require.Contains(t, out, `unknown command "bogus"`)
	require.Contains(t, out, "session ended")
	require.Contains(t, out, "/login> ")
}

func Test_parseFilters(t *testing.T) {
	f, err := parseFilters([]string{"email=a@b", "deleted=false", "locationTypeList=ONLINE, OFFLINE", "name="})
	require.NoError(t, err)
	require.Equal(t, "a@b", f["email"])
	require.Equal(t, false, f["deleted"])
	require.Equal(t, []string{"ONLINE", "OFFLINE"}, f["locationTypeList"])
	_, has := f["name"]
	require.False(t, has)

	_, err = parseFilters([]string{"novalue"})
	require.Error(t, err)
	_, err = parseFilters([]string{"=x"})
	require.Error(t, err)
}

func Test_pager(t *testing.T) {
	require.Equal(t, "[1] 2 3 4 5 › »", pager(0, 7))
	require.Equal(t, "« ‹ 2 3 [4] 5 6 › »", pager(3, 7))
	require.Equal(t, "« ‹ 3 4 5 6 [7]", pager(6, 7))
	require.Equal(t, "[1]", pager(0, 1))
	require.Equal(t, "", pager(0, 0))
}
