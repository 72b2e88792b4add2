package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
)

// scriptDeliverer spawns an external script per delivery, writing the
// rendered message as JSON on stdin, same os/exec shape as trigger.Run.
type scriptDeliverer struct {
	path string
	args []string
}

func newScriptDeliverer(t config.Trigger) *scriptDeliverer {
	return &scriptDeliverer{path: t.ScriptPath, args: t.ScriptArgs}
}

type scriptNotification struct {
	Message string       `json:"message"`
	Match   filter.Match `json:"match"`
}

func (d *scriptDeliverer) deliver(ctx context.Context, rendered string, match filter.Match) error {
	payload, err := json.Marshal(scriptNotification{Message: rendered, Match: match})
	if err != nil {
		return fmt.Errorf("%w: encoding script payload: %v", ErrPermanent, err)
	}

	cmd := exec.CommandContext(ctx, d.path, d.args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = []string{"PATH=/usr/bin:/bin:/usr/local/bin"}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("script %s: %w", d.path, ctx.Err())
		}
		return fmt.Errorf("script %s exited with error: %w (stderr: %s)", d.path, err, stderr.String())
	}
	return nil
}
