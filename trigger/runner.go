// Package trigger implements the Trigger Condition Runner: for
// each candidate match a monitor may name external gating scripts that can
// veto delivery. Each script is a one-shot, timeout-bounded os/exec
// child fed the candidate match as JSON on stdin.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

// maxOutputBytes bounds how much of a script's stdout the runner will read
// before giving up on it.
const maxOutputBytes = 64 * 1024

// ErrVetoed is returned by Run when the script ran to completion and its
// trailing line was anything other than "true"; it is not an execution
// failure.
var ErrVetoed = errors.New("trigger: gating script vetoed match")

// ErrTimeout wraps the error Run returns when a script exceeds its
// configured timeout, distinguishing it from other evaluation failures
// for metrics purposes.
var ErrTimeout = errors.New("trigger: gating script timed out")

// interpreters maps a TriggerCondition.Language to its interpreter binary.
var interpreters = map[string]string{
	"bash":   "bash",
	"python": "python3",
	"js":     "node",
}

// Run executes one gating script against candidate, returning true if the
// script's verdict passed the match through. A non-nil error (other than
// ErrVetoed) means the script could not be evaluated at all (spawn failure,
// timeout, oversized output, non-zero exit, no output line to read a
// verdict from) and the
// caller should treat the match as dropped, same as a veto.
func Run(ctx context.Context, cond config.TriggerCondition, candidate filter.Match) (bool, error) {
	interpreter, ok := interpreters[cond.Language]
	if !ok {
		return false, fmt.Errorf("trigger: unsupported script language %q", cond.Language)
	}

	payload, err := json.Marshal(candidate)
	if err != nil {
		return false, fmt.Errorf("trigger: encoding candidate match: %w", err)
	}

	timeout := time.Duration(cond.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{cond.Path}, cond.Args...)
	cmd := exec.CommandContext(runCtx, interpreter, args...)
	cmd.Stdin = bytes.NewReader(payload)
	// Scripts run with a scrubbed environment: no inherited os.Environ, only what the script
	// itself needs to locate its interpreter.
	cmd.Env = []string{"PATH=/usr/bin:/bin:/usr/local/bin"}

	var stdout bytes.Buffer
	stdoutW := &limitedWriter{w: &stdout, limit: maxOutputBytes + 1}
	cmd.Stdout = stdoutW
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxOutputBytes}

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return false, fmt.Errorf("%w: script %s after %s", ErrTimeout, cond.Path, timeout)
	}
	if runErr != nil {
		return false, fmt.Errorf("trigger: script %s exited with error: %w (stderr: %s)", cond.Path, runErr, stderr.String())
	}
	if stdoutW.n > maxOutputBytes {
		return false, fmt.Errorf("trigger: script %s wrote more than %d bytes to stdout", cond.Path, maxOutputBytes)
	}

	verdict, ok := parseVerdict(stdout.Bytes())
	if !ok {
		return false, fmt.Errorf("trigger: script %s produced no recognizable verdict line", cond.Path)
	}
	if !verdict {
		return false, ErrVetoed
	}
	return true, nil
}

// EvaluateAll runs every one of conds against candidate in order, ANDing
// the result:
// the first veto or evaluation failure short-circuits the remainder and
// its error is returned as-is (ErrVetoed, or an error wrapping ErrTimeout
// for a script that exceeded its timeout, or any other evaluation
// failure). An empty conds passes trivially.
func EvaluateAll(ctx context.Context, conds []config.TriggerCondition, candidate filter.Match) (bool, error) {
	for _, cond := range conds {
		ok, err := Run(ctx, cond, candidate)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// parseVerdict finds the trailing non-empty line and parses it as a
// case-insensitive "true"/"false"; anything else fails the gate.
func parseVerdict(out []byte) (verdict bool, ok bool) {
	lines := strings.Split(strings.TrimRight(string(out), "\r\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		return strings.EqualFold(line, "true"), true
	}
	return false, false
}

// limitedWriter caps how many bytes get copied into w, silently discarding
// the remainder instead of erroring. Run uses it to cap stderr, and checks
// n on its stdout writer to fail a script whose output is oversized.
type limitedWriter struct {
	w     io.Writer
	limit int
	n     int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.n >= lw.limit {
		return len(p), nil
	}
	remaining := lw.limit - lw.n
	if remaining > len(p) {
		remaining = len(p)
	}
	written, err := lw.w.Write(p[:remaining])
	lw.n += written
	return len(p), err
}
