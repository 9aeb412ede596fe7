package gdcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/golang/glog"

	"github.com/gooddata/gdc/pkg/catalog"
)

// DefaultBinary is looked up in PATH when Runner.Binary is empty.
const DefaultBinary = "gd"

// ErrNoWorkspacesInOutput is returned when stream-out prints a document
// without a workspaces key.
var ErrNoWorkspacesInOutput = errors.New("no workspaces found in the output")

// Runner shells out to the gd binary. The binary runs in the organization
// root and has no timeout beyond ctx.
type Runner struct {
	Binary string
}

var _ Transformer = (*Runner)(nil)

// StreamIn runs `gd stream-in` with {"workspaces": [...]} on stdin.
func (r *Runner) StreamIn(ctx context.Context, root string, ws *catalog.DeclarativeWorkspaces) error {
	payload, err := json.Marshal(map[string]any{"workspaces": ws.ToAPI().Workspaces})
	if err != nil {
		return fmt.Errorf("gd stream-in: marshal error: %w", err)
	}
	_, err = r.run(ctx, root, payload, "stream-in")
	return err
}

// StreamOut runs `gd stream-out --no-validate` and parses its stdout.
func (r *Runner) StreamOut(ctx context.Context, root string) (*catalog.DeclarativeWorkspaces, error) {
	out, err := r.run(ctx, root, nil, "stream-out", "--no-validate")
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("gd stream-out: invalid JSON output: %w", err)
	}
	if _, ok := doc["workspaces"]; !ok {
		return nil, fmt.Errorf("gd stream-out: %w", ErrNoWorkspacesInOutput)
	}

	var ws catalog.DeclarativeWorkspaces
	if err := catalog.FromMap(doc, true, &ws); err != nil {
		return nil, fmt.Errorf("gd stream-out: %w", err)
	}
	return &ws, nil
}

// run executes the binary and returns its stdout. Stderr on a successful
// run is passed through as a warning.
func (r *Runner) run(ctx context.Context, dir string, stdin []byte, args ...string) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	name := "gd " + strings.Join(args, " ")
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		glog.Warningf("%s: %s", name, msg)
	}
	return stdout.Bytes(), nil
}
