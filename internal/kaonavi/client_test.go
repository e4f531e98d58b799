package kaonavi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testCreds(baseURL string) Credentials {
	return Credentials{
		BaseURL:        baseURL,
		ConsumerKey:    "key-123",
		ConsumerSecret: "secret-456",
	}
}

// upstream builds an httptest server speaking the token and member_data
// protocol, counting token grants.
func upstream(t *testing.T, tokenCalls *atomic.Int64, membersBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		key, secret, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key-123", key)
		require.Equal(t, "secret-456", secret)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		fmt.Fprint(w, `{"access_token": "tok-abc", "token_type": "Bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok-abc", r.Header.Get("Kaonavi-Token"))
		fmt.Fprint(w, membersBody)
	})
	mux.HandleFunc("/sheets/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok-abc", r.Header.Get("Kaonavi-Token"))
		fmt.Fprintf(w, `{"member_data": [{"sheet_path": %q}]}`, r.URL.Path)
	})
	return httptest.NewServer(mux)
}

func TestFetchMembers_ExtractsBatch(t *testing.T) {
	var tokenCalls atomic.Int64
	srv := upstream(t, &tokenCalls, `{"updated_at": "2024-01-01 00:00:00", "member_data": [{"code": "A0001"}, {"code": "A0002"}]}`)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	raw, err := c.FetchMembers(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `[{"code": "A0001"}, {"code": "A0002"}]`, string(raw))
}

func TestFetchSheet_UsesSheetPath(t *testing.T) {
	var tokenCalls atomic.Int64
	srv := upstream(t, &tokenCalls, `{"member_data": []}`)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	raw, err := c.FetchSheet(context.Background(), 12)
	require.NoError(t, err)
	require.JSONEq(t, `[{"sheet_path": "/sheets/12"}]`, string(raw))
}

func TestFetch_ReusesCachedToken(t *testing.T) {
	var tokenCalls atomic.Int64
	srv := upstream(t, &tokenCalls, `{"member_data": []}`)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	for i := 0; i < 3; i++ {
		_, err := c.FetchMembers(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), tokenCalls.Load())
}

func TestFetch_RefreshesTokenNearExpiry(t *testing.T) {
	var tokenCalls atomic.Int64
	srv := upstream(t, &tokenCalls, `{"member_data": []}`)
	defer srv.Close()

	var offset atomic.Int64
	clock := func() time.Time {
		return time.Unix(1_700_000_000, 0).Add(time.Duration(offset.Load()))
	}

	c := NewClient(testCreds(srv.URL), srv.Client(), clock)
	_, err := c.FetchMembers(context.Background())
	require.NoError(t, err)

	// Inside the 60s refresh margin the token counts as expired.
	offset.Store(int64(3600*time.Second - 30*time.Second))
	_, err = c.FetchMembers(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), tokenCalls.Load())
}

func TestFetch_NonOKStatusIsUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "tok-abc", "expires_in": 3600}`)
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	_, err := c.FetchMembers(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Contains(t, err.Error(), "503")
}

func TestFetch_MissingMemberDataIsUpstreamError(t *testing.T) {
	var tokenCalls atomic.Int64
	srv := upstream(t, &tokenCalls, `{"updated_at": "2024-01-01 00:00:00"}`)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	_, err := c.FetchMembers(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestAccessToken_BadGrantIsUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testCreds(srv.URL), srv.Client(), nil)
	_, err := c.FetchMembers(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Contains(t, err.Error(), "401")
}

func TestCredentialsFromEnv(t *testing.T) {
	env := map[string]string{
		"KAONAVI_BASE_URL":        "https://api.example.com/v2/",
		"KAONAVI_CONSUMER_KEY":    "k",
		"KAONAVI_CONSUMER_SECRET": "s",
	}
	getenv := func(key string) string { return env[key] }

	creds, err := CredentialsFromEnv(getenv)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/v2", creds.BaseURL)

	for _, key := range []string{"KAONAVI_BASE_URL", "KAONAVI_CONSUMER_KEY", "KAONAVI_CONSUMER_SECRET"} {
		saved := env[key]
		env[key] = "  "
		_, err := CredentialsFromEnv(getenv)
		require.Error(t, err)
		require.Contains(t, err.Error(), key)
		env[key] = saved
	}
}
