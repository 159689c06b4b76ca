package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tiroq/scribe/testutil"
)

func TestOSRunnerCapturesOutput(t *testing.T) {
	bin := testutil.FakeBinary(t, "tool", `echo "out $1"
echo "err $2" >&2
exit 2`)

	res, err := OSRunner{}.Run(context.Background(), bin, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", res.ExitCode)
	}
	if string(res.Stdout) != "out a\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if string(res.Stderr) != "err b\n" {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestOSRunnerTimeoutKillsProcess(t *testing.T) {
	bin := testutil.FakeBinary(t, "slow", "sleep 30")

	start := time.Now()
	_, err := OSRunner{Timeout: 200 * time.Millisecond}.Run(context.Background(), bin, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("run took %v, expected the timeout to kill it", elapsed)
	}
}

func TestOSRunnerCanceledContext(t *testing.T) {
	bin := testutil.FakeBinary(t, "tool", "exit 0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (OSRunner{}).Run(ctx, bin, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
}

func TestOSRunnerMissingBinary(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	if err == nil {
		t.Fatal("expected start error for missing binary")
	}
}
