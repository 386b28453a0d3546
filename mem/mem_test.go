package mem

import (
	"errors"
	"io"
	"strings"
	"testing"

	"lesiw.io/fs"

	"lesiw.io/puppet"
)

func TestCommandNotFound(t *testing.T) {
	m, ctx := Machine(), t.Context()

	_, err := puppet.Read(ctx, m, "nonexistent-command-xyz")
	if err == nil {
		t.Fatal("Read() error = nil, want error")
	}

	if got, want := puppet.NotFound(err), true; got != want {
		t.Errorf("NotFound() = %v, want %v", got, want)
	}
}

func TestCommandSuccess(t *testing.T) {
	m, ctx := Machine(), t.Context()

	if err := puppet.Do(ctx, m, "echo", "hello"); err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
}

func TestEcho(t *testing.T) {
	m, ctx := Machine(), t.Context()

	cmd := m.Command(ctx, "echo", "hello", "world")
	out, err := io.ReadAll(cmd)
	if err != nil {
		t.Fatalf("echo failed: %v", err)
	}

	if got, want := string(out), "hello world\n"; got != want {
		t.Errorf("echo output = %q, want %q", got, want)
	}
}

func TestFalse(t *testing.T) {
	m, ctx := Machine(), t.Context()

	err := puppet.Do(ctx, m, "false")
	var cmdErr *puppet.Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Do() error = %v, want *puppet.Error", err)
	}
	if got, want := cmdErr.Code, 1; got != want {
		t.Errorf("Code = %d, want %d", got, want)
	}
}

func TestCatStdin(t *testing.T) {
	m, ctx := Machine(), t.Context()

	cmd := m.Command(ctx, "cat").(puppet.WriteBuffer)
	go func() {
		_, _ = io.WriteString(cmd, "one ")
		_, _ = io.WriteString(cmd, "two")
		_ = cmd.Close()
	}()
	out, err := io.ReadAll(cmd)
	if err != nil {
		t.Fatalf("cat failed: %v", err)
	}
	if got, want := string(out), "one two"; got != want {
		t.Errorf("cat output = %q, want %q", got, want)
	}
}

func TestCatMissingFile(t *testing.T) {
	m, ctx := Machine(), t.Context()

	_, err := puppet.Read(ctx, m, "cat", "/missing.txt")
	var cmdErr *puppet.Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Read() error = %v, want *puppet.Error", err)
	}
	if got, want := cmdErr.Code, 1; got != want {
		t.Errorf("Code = %d, want %d", got, want)
	}
	log := string(cmdErr.Log)
	if !strings.HasPrefix(log, "cat: /missing.txt") {
		t.Errorf("Log = %q, want cat: /missing.txt prefix", log)
	}
}

func TestTee(t *testing.T) {
	m, ctx := Machine(), t.Context()

	if err := fs.MkdirAll(ctx, puppet.FS(m), "/tmp"); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	tee := m.Command(ctx, "tee", "/tmp/test.txt").(puppet.WriteBuffer)
	go func() {
		_, _ = tee.Write([]byte("test content"))
		_ = tee.Close()
	}()

	out, err := io.ReadAll(tee)
	if err != nil {
		t.Fatalf("tee read failed: %v", err)
	}

	if got, want := string(out), "test content"; got != want {
		t.Errorf("tee output = %q, want %q", got, want)
	}

	got, err := puppet.Read(ctx, m, "cat", "/tmp/test.txt")
	if err != nil {
		t.Fatalf("cat failed: %v", err)
	}
	if want := "test content"; got != want {
		t.Errorf("cat output = %q, want %q", got, want)
	}
}

func TestTr(t *testing.T) {
	m, ctx := Machine(), t.Context()

	tr := m.Command(ctx, "tr", "a-z", "A-Z").(puppet.WriteBuffer)
	go func() {
		_, _ = io.WriteString(tr, "hello\nwörld")
		_ = tr.Close()
	}()
	out, err := io.ReadAll(tr)
	if err != nil {
		t.Fatalf("tr failed: %v", err)
	}
	if got, want := string(out), "HELLO\nWöRLD"; got != want {
		t.Errorf("tr output = %q, want %q", got, want)
	}
}

func TestKill(t *testing.T) {
	m, ctx := Machine(), t.Context()

	cmd := m.Command(ctx, "sleep", "3600")
	if err := cmd.(puppet.KillBuffer).Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	_, err := io.ReadAll(cmd)
	var cmdErr *puppet.Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("ReadAll() error = %v, want *puppet.Error", err)
	}
	if got, want := cmdErr.Code, -1; got != want {
		t.Errorf("Code = %d, want %d", got, want)
	}
	if puppet.NotFound(err) {
		t.Error("NotFound() = true for a killed command, want false")
	}
}

func TestWorkDir(t *testing.T) {
	m, ctx := Machine(), t.Context()

	if err := fs.MkdirAll(ctx, puppet.FS(m), "/app/data"); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	ctx = fs.WithWorkDir(ctx, "/app")
	tee := m.Command(ctx, "tee", "test.txt").(puppet.WriteBuffer)
	go func() {
		_, _ = io.WriteString(tee, "hello from /app\n")
		_ = tee.Close()
	}()
	if _, err := io.Copy(io.Discard, tee); err != nil {
		t.Fatalf("tee failed: %v", err)
	}

	out, err := puppet.Read(t.Context(), m, "cat", "/app/test.txt")
	if err != nil {
		t.Fatalf("cat failed: %v", err)
	}
	if got, want := out, "hello from /app"; got != want {
		t.Errorf("cat output = %q, want %q", got, want)
	}

	out, err = puppet.Read(ctx, m, "cat", "test.txt")
	if err != nil {
		t.Fatalf("cat with relative path failed: %v", err)
	}
	if got, want := out, "hello from /app"; got != want {
		t.Errorf("cat relative output = %q, want %q", got, want)
	}
}
