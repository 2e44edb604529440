package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token() (string, error) { return s.token, nil }
func (s staticTokens) Authenticated() bool    { return s.token != "" }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, staticTokens{token: "tok-123"})
}

func TestBearerHeaderSent(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.ListVerses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestWordProgressBody(t *testing.T) {
	var got WordProgress
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/progress/word", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	ev := WordProgress{
		VerseReference: "John 3:16",
		WordIndex:      0,
		Word:           "God",
		IsCorrect:      false,
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.PostWordProgress(context.Background(), ev))
	assert.Equal(t, ev.VerseReference, got.VerseReference)
	assert.Equal(t, 0, got.WordIndex)
	assert.Equal(t, "God", got.Word)
	assert.False(t, got.IsCorrect)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"session expired"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
				assert.False(t, IsTransient(err))
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"error":"verse already exists"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrConflict)
				assert.Contains(t, err.Error(), "verse already exists")
			},
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body:   `{"error":"reference is required"}`,
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "reference is required", ve.Message)
			},
		},
		{
			name:   "server error is transient",
			status: http.StatusBadGateway,
			body:   ``,
			check: func(t *testing.T, err error) {
				assert.True(t, IsTransient(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.CreateVerse(context.Background(), Verse{Reference: "John 3:16", Text: "..."})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New(srv.URL, staticTokens{token: "tok"})
	srv.Close() // connection refused from here on

	err := c.PostWordProgress(context.Background(), WordProgress{VerseReference: "x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestAttemptResultDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/progress/verse", r.URL.Path)
		_, _ = w.Write([]byte(`{"isCorrect":true,"message":"2 of 3 perfect attempts"}`))
	})

	res, err := c.PostVerseAttempt(context.Background(), VerseAttempt{VerseReference: "John 3:16"})
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "2 of 3 perfect attempts", res.Message)
}

func TestMasteryProgressPathEscaped(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"verse_reference":"John 3:16","total_attempts":5,"overall_accuracy":0.97}`))
	})

	mp, err := c.GetMasteryProgress(context.Background(), "John 3:16")
	require.NoError(t, err)
	assert.Equal(t, "/progress/mastery/John%203:16", gotPath)
	assert.Equal(t, 5, mp.TotalAttempts)
	assert.InDelta(t, 0.97, mp.OverallAccuracy, 1e-9)
}
