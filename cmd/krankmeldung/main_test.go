package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "krankmeldung version "))
}

func TestSeedCommand_InMemory(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KRANKMELDUNG_CONFIG", "")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars!!")
	t.Setenv("BCRYPT_COST", "4")

	cmd := rootCmd()
	cmd.SetArgs([]string{"seed", "--log-level", "error"})
	assert.NoError(t, cmd.Execute())
}

func TestServeCommand_RejectsInvalidConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KRANKMELDUNG_CONFIG", "")
	t.Setenv("JWT_SECRET", "short")

	cmd := rootCmd()
	cmd.SetArgs([]string{"serve"})
	assert.Error(t, cmd.Execute())
}
