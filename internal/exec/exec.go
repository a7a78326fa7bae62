// Package exec defines the boundary to the external schema-generation and
// execution engine. The engine is a separate process; cubist only hands it
// validated, ordered cube files with category-specific instructions and
// reads back a status code and payload. No SQL is generated or interpreted
// on this side of the boundary.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Instruction names an operation the external engine performs.
type Instruction string

// Engine instructions, one per pipeline step.
const (
	InstructionParseTable Instruction = "parse-table"
	InstructionGenerate   Instruction = "generate"
	InstructionExecute    Instruction = "execute"
	InstructionRunSeeder  Instruction = "run-seeder"
	InstructionRunTrigger Instruction = "run-trigger"
)

// Request is one unit of work for the engine.
type Request struct {
	Instruction Instruction `json:"instruction"`
	Table       string      `json:"table"`
	Database    string      `json:"database,omitempty"`
	Path        string      `json:"path"`
}

// Response is the engine's reply. A non-zero status means the instruction
// failed for this table; Payload carries diagnostics or generated output.
type Response struct {
	Status  int    `json:"status"`
	Payload string `json:"payload,omitempty"`
}

// OK reports whether the instruction succeeded.
func (r Response) OK() bool { return r.Status == 0 }

// Runner applies engine instructions. Implementations must treat each
// request independently; cubist drives them one file at a time.
type Runner interface {
	Apply(ctx context.Context, req Request) (Response, error)
}

// Process is a Runner that spawns the configured engine command once per
// request, writing the request as JSON on stdin and decoding the JSON
// response from stdout. A process-level failure (command missing, bad
// output) is a transport error distinct from a non-zero response status.
type Process struct {
	argv []string
}

// NewProcess creates a process runner from a command line such as
// "cube-engine --apply". An empty command only errors when a request is
// applied, so commands that never reach the engine work unconfigured.
func NewProcess(command string) *Process {
	return &Process{argv: strings.Fields(command)}
}

// Apply runs the engine command for one request.
func (p *Process) Apply(ctx context.Context, req Request) (Response, error) {
	if len(p.argv) == 0 {
		return Response{}, fmt.Errorf("no engine command configured")
	}

	input, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode engine request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Engine signalled failure via exit code; prefer its own
			// response payload when it produced one
			var resp Response
			if jsonErr := json.Unmarshal(stdout.Bytes(), &resp); jsonErr == nil && resp.Status != 0 {
				return resp, nil
			}
			return Response{Status: 1, Payload: strings.TrimSpace(stderr.String())}, nil
		}
		return Response{}, fmt.Errorf("engine command failed: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("failed to decode engine response: %w", err)
	}
	return resp, nil
}
