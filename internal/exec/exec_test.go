package exec

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process runner tests require a POSIX shell")
	}
}

func TestProcess_Apply(t *testing.T) {
	requireSh(t)
	p := NewProcess(`sh -c cat`) // echo the request back; it decodes as a zero-status response

	resp, err := p.Apply(context.Background(), Request{
		Instruction: InstructionParseTable,
		Table:       "users",
		Path:        "cubes/users.table.cube",
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !resp.OK() {
		t.Errorf("expected zero status, got %d", resp.Status)
	}
}

func TestProcess_EngineReportsFailure(t *testing.T) {
	requireSh(t)
	// The engine exits non-zero and writes its own response on stdout.
	p := &Process{argv: []string{"sh", "-c", `printf '{"status":3,"payload":"boom"}'; exit 3`}}

	resp, err := p.Apply(context.Background(), Request{Table: "users"})
	if err != nil {
		t.Fatalf("an engine-level failure is not a transport error: %v", err)
	}
	if resp.Status != 3 || resp.Payload != "boom" {
		t.Errorf("expected the engine's own response, got %+v", resp)
	}
}

func TestProcess_ExitWithoutResponse(t *testing.T) {
	requireSh(t)
	p := &Process{argv: []string{"sh", "-c", `echo oops >&2; exit 1`}}

	resp, err := p.Apply(context.Background(), Request{Table: "users"})
	if err != nil {
		t.Fatalf("an engine-level failure is not a transport error: %v", err)
	}
	if resp.Status != 1 {
		t.Errorf("expected status 1, got %d", resp.Status)
	}
	if resp.Payload != "oops" {
		t.Errorf("expected stderr payload, got %q", resp.Payload)
	}
}

func TestProcess_MissingCommand(t *testing.T) {
	p := NewProcess("definitely-not-a-real-engine-binary")

	_, err := p.Apply(context.Background(), Request{Table: "users"})
	if err == nil {
		t.Fatal("expected a transport error for a missing command")
	}
}

func TestProcess_NoCommandConfigured(t *testing.T) {
	p := NewProcess("")

	_, err := p.Apply(context.Background(), Request{Table: "users"})
	if err == nil || !strings.Contains(err.Error(), "no engine command") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProcess_GarbageOutput(t *testing.T) {
	requireSh(t)
	p := &Process{argv: []string{"sh", "-c", "echo not-json"}}

	_, err := p.Apply(context.Background(), Request{Table: "users"})
	if err == nil {
		t.Fatal("expected a transport error for undecodable output")
	}
}

func TestResponse_OK(t *testing.T) {
	if !(Response{Status: 0}).OK() {
		t.Error("zero status should be OK")
	}
	if (Response{Status: 2}).OK() {
		t.Error("non-zero status should not be OK")
	}
}
