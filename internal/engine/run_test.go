package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cubestack/cubist/internal/cube"
	"github.com/cubestack/cubist/internal/exec"
	"github.com/cubestack/cubist/internal/testutil"
)

// fakeRunner records every request and fails on demand.
type fakeRunner struct {
	requests     []exec.Request
	failTables   map[string]bool
	transportErr map[string]bool
}

func (f *fakeRunner) Apply(_ context.Context, req exec.Request) (exec.Response, error) {
	f.requests = append(f.requests, req)
	if f.transportErr[req.Table] {
		return exec.Response{}, fmt.Errorf("connection refused")
	}
	if f.failTables[req.Table] {
		return exec.Response{Status: 1, Payload: "engine rejected"}, nil
	}
	return exec.Response{Status: 0}, nil
}

func (f *fakeRunner) tablesFor(instruction exec.Instruction) []string {
	var out []string
	for _, req := range f.requests {
		if req.Instruction == instruction {
			out = append(out, req.Table)
		}
	}
	return out
}

func tableContent(name string, depsOn ...string) string {
	body := `@database("shop")
@table("` + name + `")

@columns({
    id: {
        type: "int";
    };
`
	for _, dep := range depsOn {
		body += "    " + dep + `_id: {
        type: "int";
        foreign: {
            table: "` + dep + `";
        };
    };
`
	}
	return body + "})\n"
}

func seederContent(name string) string {
	return `@database("shop")
@table("` + name + `")

@dataset({
    value: "sample";
})
`
}

func triggerContent(name string) string {
	return `@database("shop")
@table("` + name + `")

@beforeAdd({
    compute: "now()";
})
`
}

type testProject struct {
	dir    string
	runner *fakeRunner
	engine *Engine
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	dir := t.TempDir()
	runner := &fakeRunner{
		failTables:   make(map[string]bool),
		transportErr: make(map[string]bool),
	}
	eng := New(Config{
		CubesDir:  dir,
		StatePath: filepath.Join(dir, ".cubist", "order.json"),
		Runner:    runner,
		Logger:    testutil.NewTestLogger(t),
	})
	return &testProject{dir: dir, runner: runner, engine: eng}
}

func (p *testProject) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(p.dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func statusOf(report *Report, table string, category cube.Category) (FileStatus, bool) {
	for _, res := range report.Results {
		if res.Table == table && res.Category == category {
			return res.Status, true
		}
	}
	return "", false
}

func TestRun_TablesInDependencyOrder(t *testing.T) {
	p := newTestProject(t)
	// users scans first but depends on roles.
	p.write(t, "01_users.table.cube", tableContent("users", "roles"))
	p.write(t, "02_roles.table.cube", tableContent("roles"))

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected clean run, got %+v", report.Results)
	}

	parsed := p.runner.tablesFor(exec.InstructionParseTable)
	if len(parsed) != 2 || parsed[0] != "roles" || parsed[1] != "users" {
		t.Errorf("expected roles before users, got %v", parsed)
	}

	// Each table goes through parse, generate, execute in sequence.
	want := []exec.Instruction{
		exec.InstructionParseTable, exec.InstructionGenerate, exec.InstructionExecute,
		exec.InstructionParseTable, exec.InstructionGenerate, exec.InstructionExecute,
	}
	if len(p.runner.requests) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(p.runner.requests))
	}
	for i, instruction := range want {
		if p.runner.requests[i].Instruction != instruction {
			t.Errorf("request %d: got %s, want %s", i, p.runner.requests[i].Instruction, instruction)
		}
	}
}

func TestRun_SeedersAfterTables(t *testing.T) {
	p := newTestProject(t)
	p.write(t, "01_users.table.cube", tableContent("users"))
	p.write(t, "10_users.seeder.cube", seederContent("users"))

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected clean run, got %+v", report.Results)
	}

	last := p.runner.requests[len(p.runner.requests)-1]
	if last.Instruction != exec.InstructionRunSeeder {
		t.Errorf("expected seeder instruction last, got %s", last.Instruction)
	}
	if seeded := p.runner.tablesFor(exec.InstructionRunSeeder); len(seeded) != 1 || seeded[0] != "users" {
		t.Errorf("expected users seeded once, got %v", seeded)
	}
}

func TestRun_TriggersKeepScanOrder(t *testing.T) {
	p := newTestProject(t)
	p.write(t, "2_audit.trigger.cube", triggerContent("audit"))
	p.write(t, "1_stamp.trigger.cube", triggerContent("stamp"))

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected clean run, got %+v", report.Results)
	}

	fired := p.runner.tablesFor(exec.InstructionRunTrigger)
	if len(fired) != 2 || fired[0] != "stamp" || fired[1] != "audit" {
		t.Errorf("expected numeric-prefix scan order [stamp audit], got %v", fired)
	}
}

func TestRun_FailedDependencySkipsDependent(t *testing.T) {
	p := newTestProject(t)
	p.write(t, "01_roles.table.cube", tableContent("roles"))
	p.write(t, "02_users.table.cube", tableContent("users", "roles"))
	p.runner.failTables["roles"] = true

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.OK() {
		t.Fatal("expected failures in report")
	}

	if status, _ := statusOf(report, "roles", cube.CategoryTable); status != StatusFailed {
		t.Errorf("expected roles failed, got %s", status)
	}
	if status, _ := statusOf(report, "users", cube.CategoryTable); status != StatusSkipped {
		t.Errorf("expected users skipped, got %s", status)
	}

	// The skip happens before any engine interaction for the dependent.
	for _, req := range p.runner.requests {
		if req.Table == "users" {
			t.Errorf("no engine request expected for skipped table, got %s", req.Instruction)
		}
	}

	var skipped FileResult
	for _, res := range report.Results {
		if res.Table == "users" {
			skipped = res
		}
	}
	if len(skipped.Errors) != 1 || !strings.Contains(skipped.Errors[0].Message, `dependency "roles" failed`) {
		t.Errorf("unexpected skip diagnostics: %+v", skipped.Errors)
	}
	if skipped.Errors[0].Line <= 1 {
		t.Errorf("skip diagnostic should point at the reference line, got %d", skipped.Errors[0].Line)
	}

	failedNames := map[string]bool{}
	for _, name := range report.Failed {
		failedNames[name] = true
	}
	if !failedNames["roles"] || !failedNames["users"] {
		t.Errorf("expected roles and users in the failed set, got %v", report.Failed)
	}
}

func TestRun_InvalidFilePropagates(t *testing.T) {
	p := newTestProject(t)
	// users is structurally invalid: a table file without @columns.
	p.write(t, "01_users.table.cube", "@database(\"shop\")\n@table(\"users\")\n")
	p.write(t, "02_posts.table.cube", tableContent("posts", "users"))
	p.write(t, "03_tags.table.cube", tableContent("tags"))

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if status, _ := statusOf(report, "users", cube.CategoryTable); status != StatusInvalid {
		t.Errorf("expected users invalid, got %s", status)
	}
	if status, _ := statusOf(report, "posts", cube.CategoryTable); status != StatusSkipped {
		t.Errorf("expected posts skipped, got %s", status)
	}
	if status, _ := statusOf(report, "tags", cube.CategoryTable); status != StatusOK {
		t.Errorf("independent table must still run, got %s", status)
	}

	// Invalid files never reach the engine.
	for _, req := range p.runner.requests {
		if req.Table == "users" {
			t.Errorf("no engine request expected for invalid file, got %s", req.Instruction)
		}
	}
}

func TestRun_EngineFailureRecordsAndContinues(t *testing.T) {
	p := newTestProject(t)
	p.write(t, "01_media.table.cube", tableContent("media"))
	p.write(t, "02_tags.table.cube", tableContent("tags"))
	p.runner.failTables["media"] = true

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("non-transport failures must not abort: %v", err)
	}

	if status, _ := statusOf(report, "media", cube.CategoryTable); status != StatusFailed {
		t.Errorf("expected media failed, got %s", status)
	}
	if status, _ := statusOf(report, "tags", cube.CategoryTable); status != StatusOK {
		t.Errorf("unrelated table must still run, got %s", status)
	}

	var failedRes FileResult
	for _, res := range report.Results {
		if res.Table == "media" {
			failedRes = res
		}
	}
	if len(failedRes.Errors) != 1 || !strings.Contains(failedRes.Errors[0].Message, "parse-table failed") {
		t.Errorf("unexpected failure diagnostics: %+v", failedRes.Errors)
	}
}

func TestRun_TransportErrorAborts(t *testing.T) {
	p := newTestProject(t)
	p.write(t, "01_roles.table.cube", tableContent("roles"))
	p.write(t, "02_users.table.cube", tableContent("users"))
	p.runner.transportErr["roles"] = true

	report, err := p.engine.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to abort on transport failure")
	}
	if len(report.Results) != 1 {
		t.Errorf("expected processing to stop after the failure, got %d results", len(report.Results))
	}
	if report.Results[0].Status != StatusFailed {
		t.Errorf("expected failed status, got %s", report.Results[0].Status)
	}
}

func TestRun_EmptyProject(t *testing.T) {
	p := newTestProject(t)

	report, err := p.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("empty project must run cleanly: %v", err)
	}
	if len(report.Results) != 0 || !report.OK() {
		t.Errorf("expected empty report, got %+v", report)
	}
	if len(p.runner.requests) != 0 {
		t.Errorf("expected no engine requests, got %d", len(p.runner.requests))
	}
}
