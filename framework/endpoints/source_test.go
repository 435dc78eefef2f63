package endpoints

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDiscover_DownloadedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["http://a:1","http://b:2"]`))
	}))
	defer srv.Close()

	s := NewSource(zaptest.NewLogger(t), WithURL(srv.URL))
	require.Equal(t, []string{"http://a:1", "http://b:2"}, s.Discover(context.Background()))
}

func TestDiscover_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"nodes": 3}`))
			},
		},
		{
			name: "empty list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := NewSource(zaptest.NewLogger(t), WithURL(srv.URL))
			got := s.Discover(context.Background())
			require.NotEmpty(t, got)
			require.ElementsMatch(t, DefaultFallbackNodes, got)
		})
	}
}

func TestDiscover_UnreachableDirectory(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	fallback := []string{"http://x:1", "http://y:2", "http://z:3", "http://w:4"}
	s := NewSource(zaptest.NewLogger(t), WithURL(url), WithFallback(fallback...))
	got := s.Discover(context.Background())
	require.ElementsMatch(t, fallback, got)
}

func TestDiscover_FallbackIsCopied(t *testing.T) {
	fallback := []string{"http://x:1", "http://y:2", "http://z:3"}
	s := NewSource(zaptest.NewLogger(t), WithURL("http://127.0.0.1:1"), WithFallback(fallback...),
		WithRand(rand.New(rand.NewPCG(1, 2))))

	got := s.Discover(context.Background())
	got[0] = "mutated"
	require.Equal(t, []string{"http://x:1", "http://y:2", "http://z:3"}, fallback)
	require.ElementsMatch(t, fallback, s.Discover(context.Background()))
}

func TestWithFallback_IgnoresEmpty(t *testing.T) {
	s := NewSource(nil, WithURL("http://127.0.0.1:1"), WithFallback())
	require.ElementsMatch(t, DefaultFallbackNodes, s.Discover(context.Background()))
}
