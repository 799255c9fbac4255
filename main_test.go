package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guanke/assistbot/internal/config"
)

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"env-file", "log-level", "log-format"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, ".env", cmd.Flags().Lookup("env-file").DefValue)
}

func TestRootCmd_MissingConfig(t *testing.T) {
	for _, key := range []string{"MONGO_URI", "GENAI_API_KEY", "TELEGRAM_TOKEN", "SERPAPI_API_KEY"} {
		t.Setenv(key, "")
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissing)
}
