package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsSeconds(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		shouldSet    bool
		want         time.Duration
	}{
		{
			name:         "returns duration when set with valid seconds",
			key:          "TEST_SECONDS_VAR",
			defaultValue: 10 * time.Second,
			envValue:     "45",
			shouldSet:    true,
			want:         45 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_SECONDS_VAR_MISSING",
			defaultValue: 10 * time.Second,
			shouldSet:    false,
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not a valid integer",
			key:          "TEST_SECONDS_VAR_INVALID",
			defaultValue: 10 * time.Second,
			envValue:     "soon",
			shouldSet:    true,
			want:         10 * time.Second,
		},
		{
			name:         "returns default when negative",
			key:          "TEST_SECONDS_VAR_NEGATIVE",
			defaultValue: 10 * time.Second,
			envValue:     "-5",
			shouldSet:    true,
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsSeconds(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsSeconds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("fails when API_KEY is not set", func(t *testing.T) {
		t.Setenv("API_KEY", "")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() expected error when API_KEY is missing, got nil")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("API_KEY", "test-key")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}

		if cfg.Port != "8080" {
			t.Errorf("Port = %v, want 8080", cfg.Port)
		}
		if cfg.RetrievalLimit != 3 {
			t.Errorf("RetrievalLimit = %v, want 3", cfg.RetrievalLimit)
		}
		if cfg.RetrievalThreshold != 0.15 {
			t.Errorf("RetrievalThreshold = %v, want 0.15", cfg.RetrievalThreshold)
		}
		if cfg.FeedbackWaitTimeout != 120*time.Second {
			t.Errorf("FeedbackWaitTimeout = %v, want 120s", cfg.FeedbackWaitTimeout)
		}
		if cfg.EngagementBatchSize != 5 {
			t.Errorf("EngagementBatchSize = %v, want 5", cfg.EngagementBatchSize)
		}
	})

	t.Run("rejects inverted reply delay window", func(t *testing.T) {
		t.Setenv("API_KEY", "test-key")
		t.Setenv("REPLY_DELAY_MIN_SECONDS", "60")
		t.Setenv("REPLY_DELAY_MAX_SECONDS", "30")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() expected error for inverted delay window, got nil")
		}
	})
}
