// Package calltemplate supplies the prompt and evaluation tool used to
// synthesize MakeCall bodies when the gateway runs in template mode.
package calltemplate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	apierrors "dinodial-gateway/internal/errors"
)

type Template struct {
	Prompt         string
	EvaluationTool json.RawMessage
}

type Provider interface {
	Load(ctx context.Context) (Template, error)
}

// FileProvider reads both files on every Load; nothing is cached.
type FileProvider struct {
	promptPath string
	toolPath   string
}

func NewFileProvider(promptPath, toolPath string) *FileProvider {
	return &FileProvider{promptPath: promptPath, toolPath: toolPath}
}

func (p *FileProvider) Load(ctx context.Context) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}

	prompt, err := os.ReadFile(p.promptPath)
	if err != nil {
		return Template{}, apierrors.Wrap(apierrors.KindResourceUnavailable, "failed to read prompt", err)
	}

	tool, err := os.ReadFile(p.toolPath)
	if err != nil {
		return Template{}, apierrors.Wrap(apierrors.KindResourceUnavailable, "failed to read evaluation tool", err)
	}
	tool = bytes.TrimSpace(tool)
	if !json.Valid(tool) {
		return Template{}, apierrors.Wrap(
			apierrors.KindResourceUnavailable,
			"evaluation tool is not valid JSON",
			fmt.Errorf("parse %s", p.toolPath),
		)
	}

	return Template{Prompt: string(prompt), EvaluationTool: json.RawMessage(tool)}, nil
}

// StaticProvider serves a fixed template from memory.
type StaticProvider struct {
	Template Template
}

func (p StaticProvider) Load(context.Context) (Template, error) {
	if !json.Valid(p.Template.EvaluationTool) {
		return Template{}, apierrors.New(apierrors.KindResourceUnavailable, "evaluation tool is not valid JSON")
	}
	return p.Template, nil
}
