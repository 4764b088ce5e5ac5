package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out, errBuf bytes.Buffer

	if err := run(context.Background(), &out, &errBuf, nil); err != nil {
		t.Fatalf("run with no args: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: reeve") {
		t.Errorf("output = %q, want usage text", out.String())
	}
}

func TestRun_HelpFlag(t *testing.T) {
	for _, flag := range []string{"-h", "-help", "--help"} {
		var out, errBuf bytes.Buffer
		if err := run(context.Background(), &out, &errBuf, []string{flag}); err != nil {
			t.Fatalf("run %s: %v", flag, err)
		}
		if !strings.Contains(out.String(), "Commands:") {
			t.Errorf("%s output = %q, want command list", flag, out.String())
		}
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var out, errBuf bytes.Buffer

	err := run(context.Background(), &out, &errBuf, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("error = %v, want unknown flag", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out, errBuf bytes.Buffer

	err := run(context.Background(), &out, &errBuf, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: frobnicate") {
		t.Errorf("error = %v, want unknown command", err)
	}
}

func TestRun_BadOutputFormat(t *testing.T) {
	var out, errBuf bytes.Buffer

	err := run(context.Background(), &out, &errBuf, []string{"-o", "yaml", "version"})
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("error = %v, want unknown output format", err)
	}
}

func TestRun_SendRequiresText(t *testing.T) {
	var out, errBuf bytes.Buffer

	err := run(context.Background(), &out, &errBuf, []string{"send"})
	if err == nil || !strings.Contains(err.Error(), "usage: reeve send") {
		t.Errorf("error = %v, want send usage", err)
	}
}

func TestRunVersion_Text(t *testing.T) {
	var buf bytes.Buffer

	if err := runVersion(&buf, "text"); err != nil {
		t.Fatalf("runVersion: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Reeve ") {
		t.Errorf("output = %q, want banner line", out)
	}
	for _, field := range []string{"version:", "go_version:", "os:", "arch:"} {
		if !strings.Contains(out, field) {
			t.Errorf("output missing %q:\n%s", field, out)
		}
	}
}

func TestRunVersion_JSON(t *testing.T) {
	var buf bytes.Buffer

	if err := runVersion(&buf, "json"); err != nil {
		t.Fatalf("runVersion: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	for _, key := range []string{"version", "go_version", "os", "arch"} {
		if info[key] == "" {
			t.Errorf("JSON output missing %q: %v", key, info)
		}
	}
}

func TestRun_VersionViaArgs(t *testing.T) {
	var out, errBuf bytes.Buffer

	if err := run(context.Background(), &out, &errBuf, []string{"-o=json", "version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if info["version"] == "" {
		t.Errorf("JSON output missing version: %v", info)
	}
}
