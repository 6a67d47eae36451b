package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GRADER_GEMINI_API_KEY", "gemini-key")
	t.Setenv("GRADER_AUDITOR_API_KEY", "auditor-key")
	t.Setenv("GRADER_DRIVE_CREDENTIALS_FILE", "/secrets/drive.json")
	t.Setenv("GRADER_DRIVE_ROOT_FOLDER_ID", "root-folder")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.AppPort)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, StorageProviderDrive, cfg.StorageProvider)
	require.Equal(t, AuditorProviderOpenAI, cfg.AuditorProvider)
	require.Equal(t, 90*time.Second, cfg.JudgeTimeout)
	require.Equal(t, 30*time.Second, cfg.AuditTimeout)
	require.Equal(t, 15, cfg.MaxUploadMB)
	require.Equal(t, "gema.grading.completed", cfg.NATSSubject)
	require.Greater(t, cfg.LockTTL, cfg.StorageTimeout)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GRADER_APP_PORT", ":9090")
	t.Setenv("GRADER_AUDITOR_PROVIDER", "Anthropic")
	t.Setenv("GRADER_AUDIT_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, AuditorProviderAnthropic, cfg.AuditorProvider)
	require.Equal(t, 5*time.Second, cfg.AuditTimeout)
}

func TestLoadAcceptsLockTTLAboveStorageTimeout(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GRADER_STORAGE_TIMEOUT", "2m")
	t.Setenv("GRADER_LOCK_TTL", "3m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, cfg.StorageTimeout)
	require.Equal(t, 3*time.Minute, cfg.LockTTL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing_gemini_key", env: map[string]string{"GRADER_GEMINI_API_KEY": ""}},
		{name: "unknown_storage", env: map[string]string{"GRADER_STORAGE_PROVIDER": "s3"}},
		{name: "unknown_auditor", env: map[string]string{"GRADER_AUDITOR_PROVIDER": "mistral"}},
		{name: "bad_timeout", env: map[string]string{"GRADER_JUDGE_TIMEOUT": "soon"}},
		{name: "cloudinary_without_credentials", env: map[string]string{"GRADER_STORAGE_PROVIDER": "cloudinary"}},
		{name: "lock_ttl_equal_to_storage_timeout", env: map[string]string{"GRADER_LOCK_TTL": "30s"}},
		{name: "lock_ttl_below_storage_timeout", env: map[string]string{"GRADER_STORAGE_TIMEOUT": "2m", "GRADER_LOCK_TTL": "90s"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			require.Error(t, err)
		})
	}
}
