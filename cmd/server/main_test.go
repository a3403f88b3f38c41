package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/rxguard/internal/config"
	"github.com/Skufu/rxguard/internal/llm"
)

func TestOpenStoreUsesSQLiteByDefault(t *testing.T) {
	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "nested", "history.db")}
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()

	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenStoreRejectsBadPostgresURL(t *testing.T) {
	cfg := &config.Config{EnableDB: true, DatabaseURL: "not a url ::"}
	if _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for malformed DATABASE_URL")
	}
}

func TestModelList(t *testing.T) {
	cfg := &config.Config{AIProvider: "openai"}
	if got := modelList(cfg); strings.Join(got, ",") != strings.Join(llm.Candidates("openai"), ",") {
		t.Fatalf("default models=%v", got)
	}

	cfg.AIModels = []string{"custom-a", "custom-b"}
	if got := modelList(cfg); strings.Join(got, ",") != "custom-a,custom-b" {
		t.Fatalf("override models=%v", got)
	}
}

func TestBaseURLOnlyForGemini(t *testing.T) {
	cfg := &config.Config{AIProvider: "gemini", GeminiBaseURL: "http://localhost:9999"}
	if baseURL(cfg) != "http://localhost:9999" {
		t.Fatal("gemini base url not used")
	}
	cfg.AIProvider = "anthropic"
	if baseURL(cfg) != "" {
		t.Fatal("gemini base url leaked into another provider")
	}
}

func TestNewHTTPServerTimeouts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Port: "9090", AITimeout: 20 * time.Second}

	srv := newHTTPServer(cfg, gin.New(), 3)
	if srv.Addr != ":9090" {
		t.Fatalf("addr=%q", srv.Addr)
	}
	if srv.WriteTimeout < 60*time.Second {
		t.Fatalf("write timeout %s too short for three candidates", srv.WriteTimeout)
	}
	if srv.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("read header timeout=%s", srv.ReadHeaderTimeout)
	}

	if got := newHTTPServer(cfg, gin.New(), 0).WriteTimeout; got != 35*time.Second {
		t.Fatalf("write timeout with no candidates=%s", got)
	}
}
