package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunOrderAndNames(t *testing.T) {
	c := NewChecker()
	c.Register("postgres", func(context.Context) Check { return Check{Status: StatusHealthy} })
	c.Register("neo4j", func(context.Context) Check { return Check{Status: StatusHealthy} })
	c.Register("postgres", func(context.Context) Check { return Check{Status: StatusDegraded} })

	report := c.Run(context.Background())
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	if report.Checks[0].Name != "postgres" || report.Checks[1].Name != "neo4j" {
		t.Errorf("checks out of registration order: %+v", report.Checks)
	}
	if report.Checks[0].Status != StatusDegraded {
		t.Errorf("re-registered check should replace the first, got %s", report.Checks[0].Status)
	}
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded overall, got %s", report.Status)
	}
}

func TestWorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusUnhealthy, StatusDegraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, s := range tt.statuses {
				s := s
				c.Register(string(rune('a'+i)), func(context.Context) Check { return Check{Status: s} })
			}
			if got := c.Run(context.Background()).Status; got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(context.Context) error { return nil })(context.Background())
	if ok.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", ok.Status)
	}

	down := PingCheck(func(context.Context) error { return errors.New("connection refused") })(context.Background())
	if down.Status != StatusUnhealthy || down.Message != "connection refused" {
		t.Errorf("unexpected check %+v", down)
	}
}

func TestTemplatesCheck(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	good := write("IFT_CWE.jsonl", `{"instruction":"Describe.","input":"{cwe_id}","output":"{name}: {description}"}`+"\n")
	check := TemplatesCheck(good)(context.Background())
	if check.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %+v", check)
	}
	if check.Details["templates"] != 1 || check.Details["placeholders"] != 3 {
		t.Errorf("unexpected details %v", check.Details)
	}

	literal := write("literal.jsonl", `{"instruction":"a","input":"b","output":"c"}`+"\n")
	if got := TemplatesCheck(literal)(context.Background()).Status; got != StatusDegraded {
		t.Errorf("expected degraded, got %s", got)
	}

	empty := write("empty.jsonl", "\n\n")
	if got := TemplatesCheck(empty)(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", got)
	}

	if got := TemplatesCheck(filepath.Join(dir, "missing.jsonl"))(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", got)
	}
}

func TestOutputDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "filled_templates")

	check := OutputDirCheck(dir)(context.Background())
	if check.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %+v", check)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}

	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := OutputDirCheck(file)(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", got)
	}
}
