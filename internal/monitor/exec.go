package monitor

import (
	"context"
	"os/exec"
)

func runPing(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
