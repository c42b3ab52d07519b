package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// CommandEmbedder shells out to an external program for embeddings. The
// program receives {"texts": [...]} on stdin and must answer with
// {"vectors": [[...], ...]} on stdout, one vector per text, in order.
type CommandEmbedder struct {
	command string
	args    []string
}

// NewCommandEmbedder wraps the given command line.
func NewCommandEmbedder(command string, args ...string) *CommandEmbedder {
	return &CommandEmbedder{command: command, args: args}
}

type commandRequest struct {
	Texts []string `json:"texts"`
}

type commandResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

func (e *CommandEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(commandRequest{Texts: texts})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("embedding command failed: %w\nstderr: %s", err, stderr.String())
	}

	var resp commandResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding output: %w", err)
	}
	if len(resp.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding command returned %d vectors for %d texts",
			len(resp.Vectors), len(texts))
	}
	return resp.Vectors, nil
}
