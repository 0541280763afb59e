package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdkit/internal/apitoken"
	"prdkit/pkg/ai"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	stderr = &bytes.Buffer{}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"role=运营", "action=导出=报表", " benefit =省时"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"role": "运营", "action": "导出=报表", "benefit": "省时"}, got)

	for _, bad := range []string{"noequals", "=value", "  =x"} {
		_, err := parseArgs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestTemplatesListsIntents(t *testing.T) {
	out, err := runCLI(t, "templates")
	require.NoError(t, err)
	for _, name := range []string{"background", "userStory", "featureDecompose", "interactionFlow", "dataDict", "exceptions", "acceptance"} {
		assert.Contains(t, out, name)
	}
}

func TestTemplatesRendersIntent(t *testing.T) {
	out, err := runCLI(t, "templates", "background", "--arg", "keywords=在线协作")
	require.NoError(t, err)
	assert.Contains(t, out, "在线协作")

	_, err = runCLI(t, "templates", "background")
	assert.Error(t, err)

	_, err = runCLI(t, "templates", "nope")
	assert.Error(t, err)
}

func TestGenerateWithMockProvider(t *testing.T) {
	t.Setenv("PRDKIT_AI_PROVIDER", "mock")
	out, err := runCLI(t, "generate", "--raw", "--prompt", "写一段背景")
	require.NoError(t, err)
	assert.Equal(t, ai.MockResponse, strings.TrimSpace(out))
}

func TestGenerateRequiresPromptOrIntent(t *testing.T) {
	_, err := runCLI(t, "generate")
	assert.Error(t, err)

	_, err = runCLI(t, "generate", "userStory", "--arg", "role=运营")
	assert.Error(t, err)
}

func TestGenerateMissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := runCLI(t, "generate", "--provider", "openai", "--prompt", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
}

func TestTokenSignsVerifiableToken(t *testing.T) {
	secret := strings.Repeat("s", 32)
	t.Setenv("PRDKIT_API_TOKEN_SECRET", secret)
	out, err := runCLI(t, "token", "alice")
	require.NoError(t, err)

	m, err := apitoken.NewManager(apitoken.Options{Secret: secret, Issuer: "prdkit"})
	require.NoError(t, err)
	claims, err := m.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("PRDKIT_API_TOKEN_SECRET", "")
	_, err := runCLI(t, "token", "alice")
	assert.Error(t, err)
}

func TestExplicitMissingConfig(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "generate", "--prompt", "x")
	assert.Error(t, err)
}
