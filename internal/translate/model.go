package translate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Decoding runs with beam width 1 and a single hypothesis; combined with
// the forced target prefix this keeps translation deterministic.
const (
	modelBeamSize      = 1
	modelNumHypotheses = 1
)

// RunnerConfig configures the external CTranslate2 runner process.
type RunnerConfig struct {
	// BinaryPath is the runner executable.
	BinaryPath string
	// ModelDir is the converted CTranslate2 model directory.
	ModelDir string
}

// CT2Model implements core.TranslationModel by invoking the runner once
// per call. Source tokens go in space-joined on stdin; the single output
// hypothesis comes back space-joined on stdout.
type CT2Model struct {
	config RunnerConfig
}

// NewCT2Model creates a model bound to one converted model directory.
func NewCT2Model(cfg RunnerConfig) *CT2Model {
	return &CT2Model{config: cfg}
}

// Generate runs one constrained decoding pass. The target prefix is handed
// to the runner so the decoder starts its output with those tokens.
func (m *CT2Model) Generate(
	ctx context.Context,
	tokens, targetPrefix []string,
) ([]string, error) {
	args := []string{
		"--model", m.config.ModelDir,
		"--beam-size", fmt.Sprintf("%d", modelBeamSize),
		"--num-hypotheses", fmt.Sprintf("%d", modelNumHypotheses),
	}

	if len(targetPrefix) > 0 {
		args = append(args, "--target-prefix", strings.Join(targetPrefix, " "))
	}

	// #nosec G204 -- binary path and model dir come from validated config
	cmd := exec.CommandContext(ctx, m.config.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(strings.Join(tokens, " "))

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf(
				"translation runner exited: %s: %w",
				string(exitErr.Stderr),
				err,
			)
		}

		return nil, fmt.Errorf("failed to run translation runner: %w", err)
	}

	return strings.Fields(string(output)), nil
}
