package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const kokoroWarmupTimeout = 25 * time.Second

type KokoroConfig struct {
	Python       string
	WorkerScript string
	LangCode     string
}

// KokoroWorker drives a long-lived Kokoro python process over a line-JSON
// stdio protocol: one request line in, one response object out. The worker is
// single-flight; mu keeps the protocol in sync. A request whose context
// expires mid-response kills the process, and the next request respawns it,
// so one hung synthesis never wedges the worker for good.
type KokoroWorker struct {
	python   string
	script   string
	langCode string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dec    *json.Decoder
	stderr *bytes.Buffer
	closed bool
}

type kokoroRequest struct {
	ID       string    `json:"id"`
	Op       string    `json:"op"`
	Text     string    `json:"text,omitempty"`
	Voice    string    `json:"voice,omitempty"`
	Style    []float32 `json:"style,omitempty"`
	LangCode string    `json:"lang_code,omitempty"`
	Speed    float64   `json:"speed,omitempty"`
}

type kokoroResponse struct {
	ID          string    `json:"id"`
	OK          bool      `json:"ok"`
	SampleRate  int       `json:"sample_rate"`
	AudioBase64 string    `json:"audio_base64"`
	Style       []float32 `json:"style"`
	Error       string    `json:"error"`
}

func NewKokoroWorker(cfg KokoroConfig) (*KokoroWorker, error) {
	py := strings.TrimSpace(cfg.Python)
	if py == "" {
		// Prefer a local venv if present.
		for _, candidate := range []string{".venv/bin/python3", ".venv/bin/python", "python3"} {
			if p, err := exec.LookPath(candidate); err == nil && strings.TrimSpace(p) != "" {
				py = p
				break
			}
		}
	}
	if strings.TrimSpace(py) == "" {
		return nil, fmt.Errorf("KOKORO_PYTHON not set and python3 not found on PATH")
	}

	script := strings.TrimSpace(cfg.WorkerScript)
	if script == "" {
		script = "scripts/kokoro_worker.py"
	}
	if !filepath.IsAbs(script) {
		if wd, err := os.Getwd(); err == nil {
			script = filepath.Join(wd, script)
		}
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("kokoro worker script not found: %s", script)
	}

	w := &KokoroWorker{python: py, script: script, langCode: strings.TrimSpace(cfg.LangCode)}

	w.mu.Lock()
	err := w.startLocked()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Fire a cheap warmup request so dependency errors surface early.
	ctx, cancel := context.WithTimeout(context.Background(), kokoroWarmupTimeout)
	defer cancel()
	if _, err := w.Synthesize(ctx, Request{
		Text:  "warmup",
		Style: Style{Name: DefaultVoice},
		Speed: 1.0,
		Lang:  w.langCode,
	}); err != nil {
		msg := strings.TrimSpace(w.stderrTail())
		_ = w.Close()
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("kokoro worker failed to start: %s", msg)
	}

	return w, nil
}

// startLocked spawns the python process. Caller holds mu.
func (w *KokoroWorker) startLocked() error {
	cmd := exec.Command(w.python, "-u", w.script)
	cmd.Env = append(os.Environ(), "PYTORCH_ENABLE_MPS_FALLBACK=1")
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	w.cmd = cmd
	w.stdin = stdin
	w.dec = json.NewDecoder(stdout)
	w.stderr = stderr
	return nil
}

// killLocked tears down the current process without marking the worker
// closed, so the next request respawns it. Caller holds mu.
func (w *KokoroWorker) killLocked() {
	if w.stdin != nil {
		_ = w.stdin.Close()
	}
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
		cmd := w.cmd
		go func() { _ = cmd.Wait() }()
	}
	w.cmd = nil
	w.stdin = nil
	w.dec = nil
}

func (w *KokoroWorker) stderrTail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stderr == nil {
		return ""
	}
	return w.stderr.String()
}

func (w *KokoroWorker) Synthesize(ctx context.Context, req Request) (Result, error) {
	line := kokoroRequest{
		Op:       "synthesize",
		Text:     req.Text,
		Voice:    req.Style.Name,
		Style:    req.Style.Vector,
		LangCode: req.Lang,
		Speed:    req.Speed,
	}
	if strings.TrimSpace(line.Voice) == "" && len(line.Style) == 0 {
		line.Voice = DefaultVoice
	}
	if line.Speed <= 0 {
		line.Speed = 1.0
	}

	resp, err := w.roundTrip(ctx, line)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(resp.AudioBase64) == "" {
		return Result{SampleRate: resp.SampleRate}, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return Result{}, fmt.Errorf("decode audio_base64: %w", err)
	}
	return Result{PCM: pcm, SampleRate: resp.SampleRate}, nil
}

// VoiceStyle asks the worker for a named voice's style vector.
func (w *KokoroWorker) VoiceStyle(ctx context.Context, voiceID string) ([]float32, error) {
	resp, err := w.roundTrip(ctx, kokoroRequest{Op: "style", Voice: voiceID})
	if err != nil {
		return nil, err
	}
	if len(resp.Style) == 0 {
		return nil, fmt.Errorf("empty style vector for voice %q", voiceID)
	}
	return resp.Style, nil
}

func (w *KokoroWorker) roundTrip(ctx context.Context, line kokoroRequest) (kokoroResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return kokoroResponse{}, fmt.Errorf("kokoro worker closed")
	}
	if err := ctx.Err(); err != nil {
		return kokoroResponse{}, err
	}
	if w.cmd == nil {
		// Previous request killed the process; respawn.
		if err := w.startLocked(); err != nil {
			return kokoroResponse{}, fmt.Errorf("kokoro worker restart: %w", err)
		}
	}

	line.ID = fmt.Sprintf("req-%d", time.Now().UnixNano())
	b, _ := json.Marshal(line)
	b = append(b, '\n')
	if _, err := w.stdin.Write(b); err != nil {
		w.killLocked()
		return kokoroResponse{}, err
	}

	// Decode exactly one response (worker is single-flight guarded by mu).
	// The decode runs on its own goroutine so a hung worker can be killed
	// when the context expires instead of blocking forever.
	type decoded struct {
		resp kokoroResponse
		err  error
	}
	dec := w.dec
	ch := make(chan decoded, 1)
	go func() {
		var resp kokoroResponse
		err := dec.Decode(&resp)
		ch <- decoded{resp: resp, err: err}
	}()

	var resp kokoroResponse
	select {
	case <-ctx.Done():
		w.killLocked()
		return kokoroResponse{}, fmt.Errorf("kokoro worker unresponsive, killed: %w", ctx.Err())
	case d := <-ch:
		if d.err != nil {
			w.killLocked()
			return kokoroResponse{}, d.err
		}
		resp = d.resp
	}

	if resp.ID != line.ID {
		w.killLocked()
		return kokoroResponse{}, fmt.Errorf("kokoro worker out-of-sync (got %q, expected %q)", resp.ID, line.ID)
	}
	if !resp.OK {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "unknown kokoro error"
		}
		return kokoroResponse{}, fmt.Errorf("%s", msg)
	}
	return resp, nil
}

func (w *KokoroWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	stdin := w.stdin
	cmd := w.cmd
	w.stdin = nil
	w.cmd = nil
	w.dec = nil
	w.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(1200 * time.Millisecond):
		_ = cmd.Process.Kill()
		<-done
	case <-done:
	}
	return nil
}
