package weather

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify(t *testing.T) {
	testCases := []struct {
		desc string
		want string
	}{
		{"Partly Cloudy", "Overcast|Cool"},
		{"Overcast", "Overcast|Cold"},
		{"Mist", "Overcast|Cold"},
		{"Patchy light rain", "Rain|Light"},
		{"Moderate rain at times", "Rain|Moderate"},
		{"Heavy rain", "Rain|Heavy"},
		{"Moderate or heavy rain with thunder", "Rain|Storm"},
		{"Light drizzle", "Rain|Light"},
		{"Rain", "Rain"},
		{"Blizzard", "Snow"},
		{"Light snow showers", "Snow|Light"},
		{"Thundery outbreaks in nearby", "Rain|Storm"},
		{"Clear", "Clear"},
		{"Sunny", "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, Simplify(tc.desc))
		})
	}
}

func newTestService(url string) *Service {
	s := NewService("test-key", "Manila").WithBaseURL(url)
	s.logger = log.New(io.Discard, "", 0)
	return s
}

func TestCurrentCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Manila", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"current_condition":[{"weatherDesc":[{"value":"Patchy light rain"}]}]}}`)
	}))
	defer srv.Close()

	cond, err := newTestService(srv.URL).CurrentCondition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Rain|Light", cond)
}

func TestCurrentConditionFallbacks(t *testing.T) {
	t.Run("no api key", func(t *testing.T) {
		cond, err := NewService("", "Manila").CurrentCondition(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unknown, cond)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		cond, err := newTestService(srv.URL).CurrentCondition(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unknown, cond)
	})

	t.Run("unexpected shape", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":{"current_condition":[]}}`)
		}))
		defer srv.Close()

		cond, err := newTestService(srv.URL).CurrentCondition(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unknown, cond)
	})

	t.Run("bad json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `not json`)
		}))
		defer srv.Close()

		_, err := newTestService(srv.URL).CurrentCondition(context.Background())
		assert.Error(t, err)
	})
}

func TestStatic(t *testing.T) {
	cond, err := Static("Clear").CurrentCondition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Clear", cond)
}
