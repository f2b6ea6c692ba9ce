package calltemplate_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinodial-gateway/internal/calltemplate"
	apierrors "dinodial-gateway/internal/errors"
)

func TestFileProviderReadsFreshOnEveryLoad(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	toolPath := filepath.Join(dir, "tool.json")
	require.NoError(t, os.WriteFile(promptPath, []byte("greet the caller"), 0o600))
	require.NoError(t, os.WriteFile(toolPath, []byte("  {\"name\":\"score\"}\n"), 0o600))

	p := calltemplate.NewFileProvider(promptPath, toolPath)
	tpl, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "greet the caller", tpl.Prompt)
	assert.JSONEq(t, `{"name":"score"}`, string(tpl.EvaluationTool))

	require.NoError(t, os.WriteFile(promptPath, []byte("updated"), 0o600))
	tpl, err = p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "updated", tpl.Prompt)
}

func TestFileProviderFailures(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	toolPath := filepath.Join(dir, "tool.json")
	require.NoError(t, os.WriteFile(promptPath, []byte("p"), 0o600))

	_, err := calltemplate.NewFileProvider(filepath.Join(dir, "missing.txt"), toolPath).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierrors.KindResourceUnavailable, apierrors.KindOf(err))

	_, err = calltemplate.NewFileProvider(promptPath, toolPath).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierrors.KindResourceUnavailable, apierrors.KindOf(err))

	require.NoError(t, os.WriteFile(toolPath, []byte("{not json"), 0o600))
	_, err = calltemplate.NewFileProvider(promptPath, toolPath).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierrors.KindResourceUnavailable, apierrors.KindOf(err))
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestStaticProvider(t *testing.T) {
	p := calltemplate.StaticProvider{Template: calltemplate.Template{
		Prompt:         "hi",
		EvaluationTool: json.RawMessage(`[]`),
	}}
	tpl, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", tpl.Prompt)

	_, err = calltemplate.StaticProvider{}.Load(context.Background())
	assert.Equal(t, apierrors.KindResourceUnavailable, apierrors.KindOf(err))
}
