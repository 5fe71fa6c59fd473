package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListNotifications(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(notificationPage{
			Items: []Notification{
				{ID: 1, UserID: 100, Content: "hello", CreatedAtDisplay: "10/05/2026 09:00"},
			},
			Total: 1,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok123")
	records, err := c.ListNotifications(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, int64(1), records[0].ID)
	require.Equal(t, "hello", records[0].Content)
	require.Equal(t, "/api/notifications?page=2&size=50", gotPath)
	require.Equal(t, "Bearer tok123", gotAuth)
}

func TestListNotificationsDefaultsPaging(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		json.NewEncoder(w).Encode(notificationPage{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListNotifications(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, "/api/notifications?page=1&size=50", gotPath)
}

func TestCreateNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/notifications", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req createNotificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, int64(200), req.UserID)
		require.Equal(t, "tagged content", req.Content)

		json.NewEncoder(w).Encode(Notification{ID: 55, UserID: 200, Content: req.Content})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	created, err := c.CreateNotification(context.Background(), 200, "tagged content")
	require.NoError(t, err)
	require.Equal(t, int64(55), created.ID)
}

func TestMarkRead(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	require.NoError(t, c.MarkRead(context.Background(), 42))
	require.Equal(t, "/api/notifications/42/read", gotPath)
}

func TestUnauthorizedReturnsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "expired")
	_, err := c.ListNotifications(context.Background(), 1, 50)
	require.Error(t, err)
	require.True(t, IsAuthError(err))
}

func TestRateLimitRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(notificationPage{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListNotifications(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRateLimitHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListNotifications(ctx, 1, 50)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorEnvelopeSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Message: "content too long"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.CreateNotification(context.Background(), 200, "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "content too long")
	require.False(t, IsAuthError(err))
}
