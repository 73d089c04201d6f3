package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fire-news/internal/auth"
	"fire-news/internal/config"
	"fire-news/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "firenews dev")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("MODERATOR_JWT_SECRET", "cli-test-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "mod-42", "--ttl", "1h"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	verifier := auth.NewJWTVerifier("cli-test-secret", config.Default().Auth.Issuer)
	moderator, ok := verifier.ValidateToken("Bearer " + strings.TrimSpace(out.String()))
	require.True(t, ok)
	assert.Equal(t, "mod-42", moderator)
}

func TestNewClassifier(t *testing.T) {
	httpCfg := config.ScoringConfig{Mode: config.ScoringModeHTTP, Endpoint: "http://ml:5000", Timeout: time.Second}
	assert.IsType(t, &scoring.HTTPClassifier{}, newClassifier(httpCfg))

	scriptCfg := config.ScoringConfig{Mode: config.ScoringModeScript, PythonPath: "python3", ScriptPath: "predict.py"}
	assert.IsType(t, &scoring.ScriptClassifier{}, newClassifier(scriptCfg))
}
