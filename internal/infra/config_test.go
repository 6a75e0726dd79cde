package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PREFERENCES_SECRET", "prefs-secret")
	t.Setenv("N8N_CALLBACK_SECRET", "callback-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("N8N_WEBHOOK_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("PublicBaseURL mismatch: %q", cfg.PublicBaseURL)
	}
	if cfg.CallbackURL() != "http://localhost:8080/api/webhooks/n8n/video" {
		t.Fatalf("CallbackURL mismatch: %q", cfg.CallbackURL())
	}
	if cfg.VideoPointsCost != 10 {
		t.Fatalf("VideoPointsCost mismatch: %d", cfg.VideoPointsCost)
	}
	if cfg.JobStaleAfter != 30*time.Minute {
		t.Fatalf("JobStaleAfter mismatch: %s", cfg.JobStaleAfter)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigInheritsPortInPublicBaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "1919")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:1919" {
		t.Fatalf("PublicBaseURL mismatch: %q", cfg.PublicBaseURL)
	}
}

func TestLoadConfigHonorsExplicitValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "https://api.woovideo.app/")
	t.Setenv("N8N_WEBHOOK_URL", "https://n8n.example.com/webhook/video")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.woovideo.app, https://admin.woovideo.app ,")
	t.Setenv("VIDEO_POINTS_COST", "25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "https://api.woovideo.app" {
		t.Fatalf("PublicBaseURL mismatch: %q", cfg.PublicBaseURL)
	}
	if cfg.N8NWebhookURL != "https://n8n.example.com/webhook/video" {
		t.Fatalf("N8NWebhookURL mismatch: %q", cfg.N8NWebhookURL)
	}
	expected := []string{"https://app.woovideo.app", "https://admin.woovideo.app"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if cfg.VideoPointsCost != 25 {
		t.Fatalf("VideoPointsCost mismatch: %d", cfg.VideoPointsCost)
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "database", unset: "DATABASE_URL"},
		{name: "jwt", unset: "JWT_SECRET"},
		{name: "preferences", unset: "PREFERENCES_SECRET"},
		{name: "callback", unset: "N8N_CALLBACK_SECRET"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error when %s is missing", tc.unset)
			}
		})
	}
}

func TestLoadConfigRejectsRelativeWebhook(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("N8N_WEBHOOK_URL", "/webhook/video")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for relative webhook url")
	}
}
