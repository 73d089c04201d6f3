package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ScriptClassifier runs the Python predictor with the article text as its
// only argument and reads one JSON object from stdout.
type ScriptClassifier struct {
	pythonPath   string
	scriptPath   string
	modelVersion string
}

var _ Classifier = (*ScriptClassifier)(nil)

func NewScriptClassifier(pythonPath, scriptPath, modelVersion string) *ScriptClassifier {
	return &ScriptClassifier{
		pythonPath:   pythonPath,
		scriptPath:   scriptPath,
		modelVersion: modelVersion,
	}
}

// Score executes the predictor. The process is killed when ctx expires.
func (s *ScriptClassifier) Score(ctx context.Context, input ScoreInput) (Prediction, error) {
	text := strings.TrimSpace(input.Title + "\n\n" + input.Content)
	cmd := exec.CommandContext(ctx, s.pythonPath, s.scriptPath, text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Prediction{}, fmt.Errorf("predictor: %w", ctxErr)
		}
		return Prediction{}, fmt.Errorf("predictor failed: %w, stderr: %s", err, truncate(stderr.String(), 512))
	}

	var raw rawPrediction
	if err := json.Unmarshal(lastLine(stdout.Bytes()), &raw); err != nil {
		return Prediction{}, fmt.Errorf("parse predictor output: %w, output: %s", err, truncate(stdout.String(), 512))
	}
	return raw.validate(s.modelVersion)
}

// lastLine skips any chatter the model libraries print before the result
func lastLine(out []byte) []byte {
	out = bytes.TrimSpace(out)
	if i := bytes.LastIndexByte(out, '\n'); i >= 0 {
		return out[i+1:]
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
