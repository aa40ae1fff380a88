package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("blocks %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestDivideThenAssemble(t *testing.T) {
	dir := t.TempDir()
	src := filepath.ToSlash(filepath.Join(dir, "src.csv"))
	if err := os.WriteFile(src, []byte("id,x\n1,10\n2,20\n3,30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.ToSlash(filepath.Join(dir, "out"))

	got := strings.Fields(run(t, "divide", src, dest, "-n", "2", "--ext", ".csv"))
	want := []string{dest + "/part_00000.csv", dest + "/part_00001.csv"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("divide output mismatch (-want +got):\n%s", diff)
	}

	got = strings.Fields(run(t, "assemble", dest, "--format", "csv"))
	want = []string{"id,x", "1,10", "2,20", "3,30"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assemble output mismatch (-want +got):\n%s", diff)
	}

	summary := run(t, "iterate", dest, "--axis", "-1")
	if !strings.Contains(summary, "2 blocks along none over 1 cgroups x 2 rgroups") {
		t.Errorf("unexpected iterate output:\n%s", summary)
	}
}

func TestParseCGroups(t *testing.T) {
	got, err := parseCGroups([]string{"g0=id,x", "g1=id, y"})
	if err != nil {
		t.Fatalf("parseCGroups: %v", err)
	}
	want := map[string][]string{"g0": {"id", "x"}, "g1": {"id", "y"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range [][]string{{"g0"}, {"=id"}, {"g0=id", "g0=x"}} {
		if _, err := parseCGroups(bad); err == nil {
			t.Errorf("parseCGroups(%v): expected error", bad)
		}
	}
	if got, err := parseCGroups(nil); err != nil || got != nil {
		t.Errorf("parseCGroups(nil) = %v, %v", got, err)
	}
}

func TestSplitList(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b"}, splitList(" a, ,b ")); diff != "" {
		t.Errorf("splitList mismatch (-want +got):\n%s", diff)
	}
	if splitList("") != nil {
		t.Error("Expected nil for an empty list")
	}
}
