package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

func TestHTTPSourceRate(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if r.URL.Query().Get("from") != "USD" || r.URL.Query().Get("to") != "KES" {
			http.Error(w, "unexpected pair", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rate":"130.25"}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second)
	rate, err := src.Rate(context.Background(), "usd", "kes")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	want, _ := decimal.NewFromString("130.25")
	if !rate.Equal(want) {
		t.Fatalf("rate = %s, want 130.25", rate)
	}

	// Second lookup for the same pair must come from the cache.
	if _, err := src.Rate(context.Background(), "USD", "KES"); err != nil {
		t.Fatalf("cached Rate: %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("rate service called %d times, want 1", got)
	}
}

func TestHTTPSourceErrorsMapToRateUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such pair", http.StatusNotFound)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"rate":`))
		}},
		{"zero rate", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"rate":"0"}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			src := NewHTTPSource(srv.URL, time.Second)
			_, err := src.Rate(context.Background(), "USD", "KES")
			if !errors.Is(err, core.ErrRateUnavailable) {
				t.Fatalf("got %v, want ErrRateUnavailable", err)
			}
		})
	}
}

func TestHTTPSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	src := NewHTTPSource(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := src.Rate(context.Background(), "USD", "KES")
	if !errors.Is(err, core.ErrRateUnavailable) {
		t.Fatalf("got %v, want ErrRateUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup hung for %s despite timeout", elapsed)
	}
}
