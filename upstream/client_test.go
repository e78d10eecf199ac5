package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shelfwatch/stocksync/logger"
)

func testCreds() Credentials {
	return Credentials{APIKey: "key", ReportLocator: "inv-report"}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(logger.NewNop(), &ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_FetchRecords(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"sku":"A-1","quantity":5},
			{"item_sku":"B-2","qty_on_hand":"12"}
		]`))
	})

	records, err := c.FetchRecords(context.Background(), testCreds())
	if err != nil {
		t.Fatalf("FetchRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if gotPath != "/reports/inv-report/rows" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if records[0]["sku"] != "A-1" {
		t.Errorf("first record sku = %v", records[0]["sku"])
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"not found", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.FetchRecords(context.Background(), testCreds())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsTransient(err); got != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v (err: %v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestClient_MalformedResponseIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	})
	_, err := c.FetchRecords(context.Background(), testCreds())
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if IsTransient(err) {
		t.Error("malformed response classified as transient")
	}
}

func TestClient_MissingCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should never be sent")
	})
	_, err := c.FetchRecords(context.Background(), Credentials{ReportLocator: "r"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if IsTransient(err) {
		t.Error("config error classified as transient")
	}
}

func TestClient_TransportErrorIsTransient(t *testing.T) {
	c, err := NewClient(logger.NewNop(), &ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.FetchRecords(context.Background(), testCreds())
	if !IsTransient(err) {
		t.Errorf("transport error not transient: %v", err)
	}
}

func TestStaticCredentials(t *testing.T) {
	tests := []struct {
		name    string
		creds   StaticCredentials
		wantErr bool
	}{
		{"complete", StaticCredentials{APIKey: "k", ReportLocator: "r"}, false},
		{"missing key", StaticCredentials{ReportLocator: "r"}, true},
		{"missing locator", StaticCredentials{APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.creds.Credentials(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Credentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigError, got %T", err)
				}
			}
		})
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	if _, err := NewClient(logger.NewNop(), &ClientConfig{}); err == nil {
		t.Error("expected error for missing base_url")
	}
}
