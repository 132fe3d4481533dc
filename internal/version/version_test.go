package version

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestHelperProcess stands in for git when started by fakeGit.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("DSTATS_FAKE_GIT") != "1" {
		return
	}
	if os.Getenv("DSTATS_FAKE_GIT_FAIL") == "1" {
		os.Exit(1)
	}
	fmt.Fprint(os.Stdout, os.Getenv("DSTATS_FAKE_GIT_OUT"))
	os.Exit(0)
}

// fakeGit routes git invocations to the helper process. Argument lists found
// in outputs print the mapped string; anything else exits non-zero. It
// returns a pointer to the number of invocations.
func fakeGit(t *testing.T, outputs map[string]string) *int {
	t.Helper()
	orig := execCommand
	t.Cleanup(func() { execCommand = orig })

	calls := 0
	execCommand = func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		calls++
		out, ok := outputs[strings.Join(args, " ")]
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "DSTATS_FAKE_GIT=1", "DSTATS_FAKE_GIT_OUT="+out)
		if !ok {
			cmd.Env = append(cmd.Env, "DSTATS_FAKE_GIT_FAIL=1")
		}
		return cmd
	}
	return &calls
}

const (
	describeCommit = "describe --always --dirty"
	describeTag    = "describe --tags --abbrev=0"
)

func TestGitFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		outputs     map[string]string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "tagged checkout",
			outputs:     map[string]string{describeCommit: "4f2a9c1\n", describeTag: "v0.3.0\n"},
			wantVersion: "v0.3.0",
			wantCommit:  "4f2a9c1",
		},
		{
			name:        "no tags",
			outputs:     map[string]string{describeCommit: "4f2a9c1-dirty"},
			wantVersion: "dev",
			wantCommit:  "4f2a9c1-dirty",
		},
		{
			name:        "blank tag output",
			outputs:     map[string]string{describeCommit: "4f2a9c1", describeTag: "  \n"},
			wantVersion: "dev",
			wantCommit:  "4f2a9c1",
		},
		{
			name:        "not a repository",
			outputs:     nil,
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeGit(t, tt.outputs)
			Reset()
			t.Cleanup(Reset)

			if got := GetVersion(); got != tt.wantVersion {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVersion)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if GetDate() == "" {
				t.Error("GetDate() should default to today")
			}
		})
	}
}

func TestInfo_Ldflags(t *testing.T) {
	calls := fakeGit(t, nil)
	Reset()
	t.Cleanup(Reset)
	Version, Commit, Date = "1.2.3", "abc123", "2014-03-05"

	want := "dstats 1.2.3 (commit: abc123, built: 2014-03-05"
	if got := Info(); !strings.HasPrefix(got, want) {
		t.Errorf("Info() = %q, want prefix %q", got, want)
	}
	if *calls != 0 {
		t.Errorf("git ran %d times with ldflags set", *calls)
	}
}

func TestResolvedOnce(t *testing.T) {
	calls := fakeGit(t, map[string]string{describeCommit: "abc", describeTag: "v1"})
	Reset()
	t.Cleanup(Reset)

	for range 3 {
		_ = Info()
	}
	if *calls != 2 {
		t.Errorf("git ran %d times, want 2", *calls)
	}
}
