package synth

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeWorkerScript answers the line-JSON protocol like the python worker
// does, except a request whose text contains "stall" never gets a response.
const fakeWorkerScript = `#!/bin/sh
while read line; do
  id=$(printf '%s' "$line" | sed 's/.*"id":"\([^"]*\)".*/\1/')
  case "$line" in
    *stall*) sleep 60 ;;
    *) printf '{"id":"%s","ok":true,"sample_rate":24000,"audio_base64":"AAAA"}\n' "$id" ;;
  esac
done
`

func newFakeWorker(t *testing.T) *KokoroWorker {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	script := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(script, []byte(fakeWorkerScript), 0o755); err != nil {
		t.Fatalf("write worker script: %v", err)
	}
	w, err := NewKokoroWorker(KokoroConfig{Python: "/bin/sh", WorkerScript: script})
	if err != nil {
		t.Fatalf("NewKokoroWorker: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestKokoroWorkerRoundTrip(t *testing.T) {
	w := newFakeWorker(t)

	res, err := w.Synthesize(context.Background(), Request{Text: "hello", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.SampleRate != 24000 {
		t.Fatalf("SampleRate = %d, want 24000", res.SampleRate)
	}
	if len(res.PCM) == 0 {
		t.Fatalf("PCM empty")
	}
}

// A synthesis whose context expires must return promptly, kill the stuck
// process and leave the worker usable for the next request.
func TestKokoroWorkerTimeoutKillsAndRestarts(t *testing.T) {
	w := newFakeWorker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := w.Synthesize(ctx, Request{Text: "stall here", Speed: 1.0})
	if err == nil {
		t.Fatalf("Synthesize on a stalled worker returned no error")
	}
	if !strings.Contains(err.Error(), "deadline") {
		t.Fatalf("err = %v, want context deadline", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timed-out synthesis took %v", elapsed)
	}

	res, err := w.Synthesize(context.Background(), Request{Text: "after restart", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize after restart: %v", err)
	}
	if res.SampleRate != 24000 {
		t.Fatalf("SampleRate = %d, want 24000", res.SampleRate)
	}
}
