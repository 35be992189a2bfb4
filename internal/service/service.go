// Package service installs anchor as a per-user background service: a
// launchd agent on macOS or a systemd user unit on Linux. Both run
// "anchor serve" and restart it if it exits.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/joho/godotenv"

	"github.com/chris/anchor/config"
)

const (
	label    = "com.anchor.agent"
	unitName = "anchor.service"
	binName  = "anchor"
)

// unitData fills both service templates.
type unitData struct {
	Label     string
	BinPath   string
	WorkDir   string
	StdoutLog string
	StderrLog string
}

// backend is one init system.
type backend struct {
	name      string
	binPath   string
	unitPath  string
	render    func(unitData) (string, error)
	load      func(path string) error
	unload    func(path string) error
	start     func() error
	stop      func() error
	status    func() error
	logs      func() error
	stdoutLog string
	stderrLog string
}

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

func current() (*backend, error) {
	switch runtime.GOOS {
	case "darwin":
		return launchdBackend(), nil
	case "linux":
		return systemdBackend(), nil
	default:
		return nil, fmt.Errorf("service management is not supported on %s", runtime.GOOS)
	}
}

func launchdBackend() *backend {
	logDir := filepath.Join(home(), "Library", "Logs")
	return &backend{
		name:      "launchd",
		binPath:   "/usr/local/bin/" + binName,
		unitPath:  filepath.Join(home(), "Library", "LaunchAgents", label+".plist"),
		render:    renderPlist,
		load:      func(p string) error { return run("launchctl", "load", p) },
		unload:    func(p string) error { return run("launchctl", "unload", p) },
		start:     func() error { return run("launchctl", "start", label) },
		stop:      func() error { return run("launchctl", "stop", label) },
		status:    func() error { return attach("launchctl", "list", label) },
		stdoutLog: filepath.Join(logDir, "anchor-stdout.log"),
		stderrLog: filepath.Join(logDir, "anchor-stderr.log"),
		logs: func() error {
			return attach("tail", "-f", filepath.Join(logDir, "anchor-stdout.log"), filepath.Join(logDir, "anchor-stderr.log"))
		},
	}
}

func systemdBackend() *backend {
	systemctl := func(args ...string) error { return run("systemctl", append([]string{"--user"}, args...)...) }
	return &backend{
		name:     "systemd",
		binPath:  filepath.Join(home(), ".local", "bin", binName),
		unitPath: filepath.Join(home(), ".config", "systemd", "user", unitName),
		render:   renderUnit,
		load: func(string) error {
			if err := systemctl("daemon-reload"); err != nil {
				return err
			}
			return systemctl("enable", "--now", unitName)
		},
		unload: func(string) error { return systemctl("disable", "--now", unitName) },
		start:  func() error { return systemctl("start", unitName) },
		stop:   func() error { return systemctl("stop", unitName) },
		status: func() error { return attach("systemctl", "--user", "status", unitName) },
		logs:   func() error { return attach("journalctl", "--user", "-u", unitName, "-f") },
	}
}

// Install copies the running binary into place, seeds ~/.anchor/config from
// .env if there is none, writes the service definition and loads it.
func Install() error {
	b, err := current()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	if err := copyBinary(exe, b.binPath); err != nil {
		return err
	}
	fmt.Printf("installed binary to %s\n", b.binPath)

	if err := seedConfig(); err != nil {
		return err
	}

	def, err := b.render(unitData{
		Label:     label,
		BinPath:   b.binPath,
		WorkDir:   resolveWorkDir(),
		StdoutLog: b.stdoutLog,
		StderrLog: b.stderrLog,
	})
	if err != nil {
		return fmt.Errorf("rendering %s definition: %w", b.name, err)
	}

	if _, err := os.Stat(b.unitPath); err == nil {
		_ = b.unload(b.unitPath)
	}
	if err := os.MkdirAll(filepath.Dir(b.unitPath), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(b.unitPath), err)
	}
	if err := os.WriteFile(b.unitPath, []byte(def), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", b.unitPath, err)
	}
	fmt.Printf("wrote %s\n", b.unitPath)

	if err := b.load(b.unitPath); err != nil {
		return fmt.Errorf("loading service: %w", err)
	}
	fmt.Printf("service loaded with %s and will start on login\n", b.name)
	return nil
}

func copyBinary(src, dst string) error {
	if src == dst {
		return nil
	}
	input, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, input, 0755); err != nil {
		return fmt.Errorf("copying binary to %s: %w", dst, err)
	}
	return nil
}

func seedConfig() error {
	configFile := config.ConfigFile()
	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("config already exists at %s\n", configFile)
		return nil
	}
	envData, err := os.ReadFile(".env")
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(config.ConfigDir(), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(configFile, envData, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("seeded config from .env -> %s\n", configFile)
	return nil
}

// resolveWorkDir keeps the install directory when DATABASE_PATH is relative,
// since the database would otherwise move. Absolute paths run from ~/.anchor.
func resolveWorkDir() string {
	envVars, _ := godotenv.Read(config.ConfigFile())
	if dbPath, ok := envVars["DATABASE_PATH"]; ok && !filepath.IsAbs(dbPath) {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return config.ConfigDir()
}

// Uninstall stops the service and removes its definition and binary.
func Uninstall() error {
	b, err := current()
	if err != nil {
		return err
	}

	if _, err := os.Stat(b.unitPath); err == nil {
		if err := b.unload(b.unitPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(b.unitPath); err != nil {
			return fmt.Errorf("removing %s: %w", b.unitPath, err)
		}
		fmt.Printf("removed %s\n", b.unitPath)
	} else {
		fmt.Printf("%s not found, skipping\n", b.unitPath)
	}

	if _, err := os.Stat(b.binPath); err == nil {
		if err := os.Remove(b.binPath); err != nil {
			return fmt.Errorf("removing binary: %w", err)
		}
		fmt.Printf("removed %s\n", b.binPath)
	}

	fmt.Println("uninstalled")
	return nil
}

func Start() error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.start()
}

func Stop() error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.stop()
}

func Restart() error {
	b, err := current()
	if err != nil {
		return err
	}
	_ = b.stop()
	return b.start()
}

func Status() error {
	b, err := current()
	if err != nil {
		return err
	}
	if err := b.status(); err != nil {
		fmt.Println("service is not loaded")
	}
	return nil
}

// Logs follows the service output until interrupted.
func Logs() error {
	b, err := current()
	if err != nil {
		return err
	}
	return b.logs()
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

// attach runs a command with its output on the terminal.
func attach(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>serve</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>LOG_FORMAT</key>
		<string>json</string>
	</dict>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Anchor reminder companion
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.BinPath}} serve
WorkingDirectory={{.WorkDir}}
Environment=LOG_FORMAT=json
Restart=always
RestartSec=5

[Install]
WantedBy=default.target
`))

func renderPlist(d unitData) (string, error) {
	return render(plistTemplate, d)
}

func renderUnit(d unitData) (string, error) {
	return render(unitTemplate, d)
}

func render(t *template.Template, d unitData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
