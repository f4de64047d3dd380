package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitQuizSuccess(t *testing.T) {
	var got submitQuizRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/judge/complete-quiz", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"score": 3, "total": 4, "passed": true,
		})
	}))
	defer srv.Close()

	c := NewGradingClient(srv.URL, time.Second)
	result, err := c.SubmitQuiz(context.Background(), "u1", map[string]string{"q1": "q1-a"})
	require.NoError(t, err)

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, map[string]string{"q1": "q1-a"}, got.Answers)
	assert.Equal(t, 3, result.Score)
	assert.Equal(t, 4, result.Total)
	assert.True(t, result.Passed)
}

func TestSubmitQuizRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "rate_limited",
			"message": "Please wait 15 minutes before trying again.",
		})
	}))
	defer srv.Close()

	c := NewGradingClient(srv.URL, time.Second)
	_, err := c.SubmitQuiz(context.Background(), "u1", map[string]string{"q1": "q1-a"})

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	// The server's cooldown text passes through untouched
	assert.Equal(t, "Please wait 15 minutes before trying again.", rl.Error())
}

func TestSubmitQuizRateLimitedWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGradingClient(srv.URL, time.Second)
	_, err := c.SubmitQuiz(context.Background(), "u1", map[string]string{"q1": "q1-a"})

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.NotEmpty(t, rl.Error())
}

func TestSubmitQuizFailuresCollapseToUnavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewGradingClient(srv.URL, time.Second)
		_, err := c.SubmitQuiz(context.Background(), "u1", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		c := NewGradingClient(srv.URL, time.Second)
		_, err := c.SubmitQuiz(context.Background(), "u1", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("connection refused", func(t *testing.T) {
		c := NewGradingClient("http://127.0.0.1:1", 100*time.Millisecond)
		_, err := c.SubmitQuiz(context.Background(), "u1", nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
