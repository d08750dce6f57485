package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHasReplyMarker(t *testing.T) {
	cases := []struct {
		out  string
		want bool
	}{
		{"64 bytes from 10.0.0.5: icmp_seq=1 ttl=64 time=0.3 ms", true},
		{"Reply from 10.0.0.5: bytes=32 time<1ms TTL=64", true},
		{"Request timeout for icmp_seq 0", false},
		{"Destination Host Unreachable", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := hasReplyMarker(tc.out); got != tc.want {
			t.Errorf("hasReplyMarker(%q) = %v, want %v", tc.out, got, tc.want)
		}
	}
}

func TestProbeTrustsMarkersOverExitCode(t *testing.T) {
	p := NewExecProber(2, time.Second, zap.NewNop())
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		// One of two packets lost: replies present, exit code non-zero.
		return []byte("64 bytes from 10.0.0.5: ttl=64 time=0.3 ms"), errors.New("exit status 1")
	}
	if !p.Probe(context.Background(), "10.0.0.5") {
		t.Error("probe with reply markers should be reachable despite exit code")
	}
}

func TestProbeFailsWithoutMarkers(t *testing.T) {
	p := NewExecProber(2, time.Second, zap.NewNop())
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Request timeout for icmp_seq 0"), errors.New("exit status 1")
	}
	if p.Probe(context.Background(), "10.0.0.5") {
		t.Error("probe without replies should be unreachable")
	}
}

func TestProbeBoundsSubprocess(t *testing.T) {
	p := NewExecProber(2, time.Second, zap.NewNop())
	p.run = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Error("probe context carries no deadline")
		} else if remaining := time.Until(deadline); remaining > 3*time.Second {
			t.Errorf("deadline %v away, want at most attempts*timeout+1s", remaining)
		}
		return []byte("64 bytes from 10.0.0.5: ttl=64"), nil
	}
	p.Probe(context.Background(), "10.0.0.5")
}

func TestProbeEmptyAddress(t *testing.T) {
	p := NewExecProber(2, time.Second, zap.NewNop())
	p.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("must not exec ping for empty address")
		return nil, nil
	}
	if p.Probe(context.Background(), "") {
		t.Error("empty address should be unreachable")
	}
}

func TestPingArgs(t *testing.T) {
	linux := pingArgs("linux", 2, time.Second, "10.0.0.5")
	if len(linux) != 5 || linux[0] != "-c" || linux[1] != "2" || linux[2] != "-W" || linux[4] != "10.0.0.5" {
		t.Errorf("linux args = %v", linux)
	}
	win := pingArgs("windows", 2, time.Second, "10.0.0.5")
	if len(win) != 5 || win[0] != "-n" || win[2] != "-w" || win[3] != "1000" {
		t.Errorf("windows args = %v", win)
	}
}
