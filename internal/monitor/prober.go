package monitor

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProbeFunc reports whether the address answered a reachability probe.
type ProbeFunc func(ctx context.Context, addr string) bool

// ExecProber probes hosts with the system ping binary. Some ping builds exit
// non-zero even when replies arrived, so the output is checked for reply
// markers before trusting the exit code.
type ExecProber struct {
	attempts int
	timeout  time.Duration
	logger   *zap.Logger
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecProber returns a prober sending the given number of echo requests
// per probe, each waiting up to timeout.
func NewExecProber(attempts int, timeout time.Duration, logger *zap.Logger) *ExecProber {
	if attempts <= 0 {
		attempts = 2
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ExecProber{attempts: attempts, timeout: timeout, logger: logger, run: runPing}
}

// Probe pings addr and reports reachability. The subprocess is bounded on the
// Go side too; ping's own flags are not trusted to terminate it.
func (p *ExecProber) Probe(ctx context.Context, addr string) bool {
	if addr == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.attempts)*p.timeout+time.Second)
	defer cancel()

	args := pingArgs(runtime.GOOS, p.attempts, p.timeout, addr)
	out, err := p.run(ctx, "ping", args...)
	reachable := hasReplyMarker(string(out))
	if err != nil && !reachable {
		return false
	}
	if err != nil {
		p.logger.Debug("ping exited non-zero but replies seen", zap.String("addr", addr), zap.Error(err))
	}
	return reachable
}

func pingArgs(goos string, attempts int, timeout time.Duration, addr string) []string {
	count := strconv.Itoa(attempts)
	if goos == "windows" {
		ms := strconv.Itoa(int(timeout / time.Millisecond))
		return []string{"-n", count, "-w", ms, addr}
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"-c", count, "-W", strconv.Itoa(secs), addr}
}

// hasReplyMarker scans ping output for evidence of a reply.
func hasReplyMarker(out string) bool {
	lower := strings.ToLower(out)
	for _, marker := range []string{"ttl=", "bytes from", "time="} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
