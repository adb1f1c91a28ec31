package textextract

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner runs an external command. Tests swap in a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		r.logger.Error("exec.failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"elapsed_ms", elapsed,
			"error", err,
			"stderr", clip(errb.String(), 8<<10),
		)
	} else {
		r.logger.Debug("exec.ok",
			"cmd", name,
			"elapsed_ms", elapsed,
			"stdout_bytes", out.Len(),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
