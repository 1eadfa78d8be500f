package drivers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stackmint/stackmint/domain/model"
)

func TestDeriveDiscoveryURLReusesExisting(t *testing.T) {
	cluster := &model.Cluster{DiscoveryURL: "https://discovery.example/abc"}
	got, err := DeriveDiscoveryURL(context.Background(), DiscoveryConfig{}, DiscoveryEtcd, cluster, 3)
	if err != nil {
		t.Fatalf("DeriveDiscoveryURL: %v", err)
	}
	if got != "https://discovery.example/abc" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveDiscoveryURLToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte("d7c8a6e3f1\n"))
	}))
	defer srv.Close()

	cfg := DiscoveryConfig{TokenURL: srv.URL}
	got, err := DeriveDiscoveryURL(context.Background(), cfg, DiscoveryToken, &model.Cluster{}, 1)
	if err != nil {
		t.Fatalf("DeriveDiscoveryURL: %v", err)
	}
	if got != "token://d7c8a6e3f1" {
		t.Fatalf("got %q, want token://d7c8a6e3f1", got)
	}
}

func TestDeriveDiscoveryURLEtcd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("size"); got != "3" {
			t.Errorf("size = %q, want 3", got)
		}
		w.Write([]byte("https://discovery.etcd.example/new/abcdef"))
	}))
	defer srv.Close()

	cfg := DiscoveryConfig{EtcdURL: srv.URL + "/new"}
	got, err := DeriveDiscoveryURL(context.Background(), cfg, DiscoveryEtcd, &model.Cluster{}, 3)
	if err != nil {
		t.Fatalf("DeriveDiscoveryURL: %v", err)
	}
	if got != "https://discovery.etcd.example/new/abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveDiscoveryURLFormatFallback(t *testing.T) {
	cfg := DiscoveryConfig{URLFormat: "etcd://%(cluster_id)s/%(cluster_uuid)s"}
	cluster := &model.Cluster{ID: 42, UUID: "5d12f6fd"}
	got, err := DeriveDiscoveryURL(context.Background(), cfg, DiscoveryEtcd, cluster, 1)
	if err != nil {
		t.Fatalf("DeriveDiscoveryURL: %v", err)
	}
	if got != "etcd://42/5d12f6fd" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveDiscoveryURLServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DiscoveryConfig{EtcdURL: srv.URL}
	_, err := DeriveDiscoveryURL(context.Background(), cfg, DiscoveryEtcd, &model.Cluster{}, 1)
	if !errors.Is(err, model.ErrDiscoveryURL) {
		t.Fatalf("got %v, want ErrDiscoveryURL", err)
	}
}

func TestDeriveDiscoveryURLNothingConfigured(t *testing.T) {
	_, err := DeriveDiscoveryURL(context.Background(), DiscoveryConfig{}, DiscoveryEtcd, &model.Cluster{}, 1)
	if !errors.Is(err, model.ErrDiscoveryURL) {
		t.Fatalf("got %v, want ErrDiscoveryURL", err)
	}
}

func TestDeriveDiscoveryURLNoneMode(t *testing.T) {
	got, err := DeriveDiscoveryURL(context.Background(), DiscoveryConfig{}, DiscoveryNone, &model.Cluster{}, 1)
	if err != nil || got != "" {
		t.Fatalf("got %q, %v; want empty, nil", got, err)
	}
}
