package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
)

func writeFile(t *testing.T, l *Local, p, content string) {
	t.Helper()
	if err := afero.WriteFile(l.Fs(), p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", p, err)
	}
}

func TestLocalList(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	writeFile(t, l, "/data/g1/r0.csv", "a")
	writeFile(t, l, "/data/g0/r1.csv", "a")
	writeFile(t, l, "/data/g0/r0.csv", "a")
	writeFile(t, l, "/data/top.csv", "a")
	if err := l.MkdirAll(ctx, "/data/empty"); err != nil {
		t.Fatal(err)
	}

	got, err := l.List(ctx, "/data")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"/data/g0/r0.csv", "/data/g0/r1.csv", "/data/g1/r0.csv", "/data/top.csv"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	got, err = l.List(ctx, "/data/top.csv")
	if err != nil || len(got) != 1 || got[0] != "/data/top.csv" {
		t.Errorf("List of a file = %v, %v", got, err)
	}

	got, err = l.List(ctx, "/missing")
	if err != nil || len(got) != 0 {
		t.Errorf("List of a missing dir = %v, %v", got, err)
	}
}

func TestLocalListFollowsFileSymlinks(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(data, "part_00000.csv"), []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(root, "elsewhere.csv")
	if err := os.WriteFile(target, []byte("a\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(data, "part_00001.csv")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	l := NewLocal()
	got, err := l.List(ctx, filepath.ToSlash(data))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.ToSlash(filepath.Join(data, "part_00000.csv")),
		filepath.ToSlash(link),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	ok, err := l.Exists(ctx, filepath.ToSlash(link))
	if err != nil || !ok {
		t.Errorf("Exists(link) = %v, %v", ok, err)
	}
}

func TestLocalExists(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	writeFile(t, l, "/d/f.csv", "x")

	tests := map[string]bool{
		"/d/f.csv":  true,
		"/d":        false,
		"/d/no.csv": false,
	}
	for p, want := range tests {
		got, err := l.Exists(ctx, p)
		if err != nil {
			t.Fatalf("Exists(%s): %v", p, err)
		}
		if got != want {
			t.Errorf("Exists(%s) = %v, want %v", p, got, want)
		}
	}
}

func TestLocalCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	w, err := l.Create(ctx, "/out/g0/part_00000.csv")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, "id\n1\n"); err != nil {
		t.Fatal(err)
	}

	ok, _ := l.Exists(ctx, "/out/g0/part_00000.csv")
	if ok {
		t.Error("Expected final path to be absent before Close")
	}
	listed, _ := l.List(ctx, "/out")
	if len(listed) != 0 {
		t.Errorf("Expected staging files to be hidden from List, got %v", listed)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r, err := l.Open(ctx, "/out/g0/part_00000.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if string(b) != "id\n1\n" {
		t.Errorf("Expected written content, got %q", b)
	}
}

func TestLocalAbort(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	writeFile(t, l, "/out/a.csv", "old")

	w, err := l.Create(ctx, "/out/a.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "new")
	if err := Abort(w); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	b, err := afero.ReadFile(l.Fs(), "/out/a.csv")
	if err != nil || string(b) != "old" {
		t.Errorf("Expected original content after abort, got %q, %v", b, err)
	}
	entries, _ := afero.ReadDir(l.Fs(), "/out")
	if len(entries) != 1 {
		t.Errorf("Expected staging file to be removed, found %d entries", len(entries))
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in, bucket, key string
		wantErr         bool
	}{
		{"bucket/a/b.csv", "bucket", "a/b.csv", false},
		{"/bucket/a", "bucket", "a", false},
		{"bucket", "bucket", "", false},
		{"", "", "", true},
	}
	for _, tt := range tests {
		b, k, err := SplitPath(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitPath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if b != tt.bucket || k != tt.key {
			t.Errorf("SplitPath(%q) = %q, %q; want %q, %q", tt.in, b, k, tt.bucket, tt.key)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"canceled", context.Canceled, ErrorPermanent},
		{"not exist", afero.ErrFileNotFound, ErrorPermanent},
		{"eagain", syscall.EAGAIN, ErrorTransient},
		{"enospc", syscall.ENOSPC, ErrorPermanent},
		{"slow down", minio.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, ErrorTransient},
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, ErrorPermanent},
		{"server error", minio.ErrorResponse{StatusCode: http.StatusBadGateway}, ErrorTransient},
		{"network", timeoutErr{}, ErrorNetwork},
		{"other", errors.New("boom"), ErrorPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetrierDo(t *testing.T) {
	r := &Retrier{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxRetries: 3}

	calls := 0
	err := r.Do(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return syscall.EAGAIN
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("Expected success after 3 calls, got %d calls, err %v", calls, err)
	}

	calls = 0
	err = r.Do(context.Background(), "test", func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("Expected a single call for a permanent error, got %d calls, err %v", calls, err)
	}

	calls = 0
	err = r.Do(context.Background(), "test", func() error {
		calls++
		return syscall.ETIMEDOUT
	})
	if !errors.Is(err, syscall.ETIMEDOUT) || calls != 4 {
		t.Errorf("Expected 4 calls ending in ETIMEDOUT, got %d calls, err %v", calls, err)
	}
}

func TestRetrierStopsOnContext(t *testing.T) {
	r := &Retrier{InitialDelay: time.Hour, MaxDelay: time.Hour, MaxRetries: 3}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Do(ctx, "test", func() error { return syscall.EAGAIN })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
