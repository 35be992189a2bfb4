package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testUnit = unitData{
	Label:     label,
	BinPath:   "/usr/local/bin/anchor",
	WorkDir:   "/home/rose/.anchor",
	StdoutLog: "/tmp/anchor-stdout.log",
	StderrLog: "/tmp/anchor-stderr.log",
}

func TestRenderPlist(t *testing.T) {
	out, err := renderPlist(testUnit)
	if err != nil {
		t.Fatalf("renderPlist: %v", err)
	}
	for _, want := range []string{
		"<string>com.anchor.agent</string>",
		"<string>/usr/local/bin/anchor</string>\n\t\t<string>serve</string>",
		"<string>/home/rose/.anchor</string>",
		"<string>/tmp/anchor-stderr.log</string>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plist missing %q", want)
		}
	}
}

func TestRenderUnit(t *testing.T) {
	out, err := renderUnit(testUnit)
	if err != nil {
		t.Fatalf("renderUnit: %v", err)
	}
	for _, want := range []string{
		"ExecStart=/usr/local/bin/anchor serve\n",
		"WorkingDirectory=/home/rose/.anchor\n",
		"Restart=always",
		"WantedBy=default.target",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("unit missing %q", want)
		}
	}
}

func TestResolveWorkDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd := t.TempDir()
	t.Chdir(wd)

	if got := resolveWorkDir(); got != filepath.Join(dir, ".anchor") {
		t.Errorf("without config, got %q", got)
	}

	if err := os.MkdirAll(filepath.Join(dir, ".anchor"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".anchor", "config"), []byte("DATABASE_PATH=./anchor.db\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ := filepath.EvalSymlinks(resolveWorkDir())
	want, _ := filepath.EvalSymlinks(wd)
	if got != want {
		t.Errorf("relative DATABASE_PATH should keep the install dir: got %q, want %q", got, want)
	}
}

func TestCopyBinary(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "bin", "anchor")
	if err := os.WriteFile(src, []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := copyBinary(src, dst); err != nil {
		t.Fatalf("copyBinary: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "binary" {
		t.Errorf("unexpected copy %q, %v", data, err)
	}
	if err := copyBinary(dst, dst); err != nil {
		t.Errorf("copying onto itself should be a no-op, got %v", err)
	}
}
