package amp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return New(Options{
		URL:      url,
		Username: "admin",
		Password: "secret",
		Timeout:  2 * time.Second,
	})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestLoginSuccessStoresSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/API/Core/Login", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "admin", payload["username"])
		assert.Equal(t, "", payload["token"])
		assert.Equal(t, false, payload["rememberMe"])

		writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess-1"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	sess, err := c.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess)
}

func TestLoginFailureReturnsAuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"success": false, "resultReason": "bad creds"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.EnsureSession(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "bad creds")
}

func TestLoginWithoutCredentials(t *testing.T) {
	c := New(Options{URL: "http://127.0.0.1:0"})

	err := c.Login(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "credentials")
}

func TestCallRetriesOnceOnInBandExpiry(t *testing.T) {
	var logins, calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/API/Core/Login":
			n := logins.Add(1)
			writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess-" + string(rune('0'+n))})
		case "/API/Core/GetModuleInfo":
			if calls.Add(1) == 1 {
				writeJSON(t, w, map[string]any{"Title": "Session Expired"})
				return
			}
			writeJSON(t, w, map[string]any{"ModuleName": "ADS"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	body, err := c.Call(context.Background(), "Core/GetModuleInfo", nil)
	require.NoError(t, err)

	var res map[string]string
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "ADS", res["ModuleName"])

	// Exactly one initial login plus one re-login, never a loop
	assert.EqualValues(t, 2, logins.Load())
	assert.EqualValues(t, 2, calls.Load())
}

func TestCallRetriesOnceOnAuthStatus(t *testing.T) {
	var logins, calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/API/Core/Login":
			logins.Add(1)
			writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess"})
		default:
			if calls.Add(1) == 1 {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			writeJSON(t, w, map[string]any{"ok": true})
		}
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Call(context.Background(), "Core/GetUpdates", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, logins.Load())
}

func TestCallSurfacesPersistentExpiry(t *testing.T) {
	var logins atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/API/Core/Login" {
			logins.Add(1)
			writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess"})
			return
		}
		// Always expired: the retried response is returned as-is, no loop
		writeJSON(t, w, map[string]any{"Title": "Unauthorized Access"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	body, err := c.Call(context.Background(), "Core/GetUpdates", nil)
	require.NoError(t, err)
	assert.True(t, expired(body))
	assert.EqualValues(t, 2, logins.Load())
}

func TestCallTransientError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/API/Core/Login" {
			writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess"})
			return
		}
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Call(context.Background(), "Core/GetUpdates", nil)

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, "Core/GetUpdates", transient.Endpoint)
}

func TestInvalidateForcesRelogin(t *testing.T) {
	var logins atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/API/Core/Login", r.URL.Path)
		logins.Add(1)
		writeJSON(t, w, map[string]any{"success": true, "sessionID": "sess"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.EnsureSession(context.Background())
	require.NoError(t, err)

	c.Invalidate()
	_, err = c.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, logins.Load())
}
