package rscript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestMain lets the compiled test binary itself act as a script
// executable: a copy of it placed on disk under one of the names
// helperModeFromArgv0 recognizes re-executes as that script's
// discovery/execute state machine instead of running go test's own
// suite, the same self-re-exec trick os/exec's own tests use for
// TestHelperProcess, generalized here to a BusyBox-style dispatch on
// argv[0] so a single binary can stand in for several distinct
// scripts in one test run.
func TestMain(m *testing.M) {
	if mode := helperModeFromArgv0(); mode != "" {
		runHelperProcess(mode)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

var helperModes = map[string]func(){
	"echo-oneshot":     runEchoOneShot,
	"echo-daemon":      runEchoDaemon,
	"counter-oneshot":  runCounterOneShot,
	"counter-daemon":   runCounterDaemon,
	"version-mismatch": runVersionMismatch,
	"crash-on-execute": runCrashOnExecute,
}

func helperModeFromArgv0() string {
	base := filepath.Base(os.Args[0])
	if _, ok := helperModes[base]; ok {
		return base
	}
	return ""
}

func runHelperProcess(mode string) {
	helperModes[mode]()
}

func runEchoOneShot() {
	runEchoScript(OneShot)
}

func runEchoDaemon() {
	runEchoScript(Daemon)
}

// runEchoScript implements the Eval hook's discovery/execute state
// machine directly over stdin/stdout (rather than through the
// scripting package, which would import this package and create a
// cycle from this test file).
func runEchoScript(kind ScriptType) {
	var msg Message
	if err := DecodeFrom(os.Stdin, &msg); err != nil {
		os.Exit(1)
	}

	switch msg {
	case MessageGreeting:
		info := NewScriptInfo("echo", kind, []string{"Eval"}, MustParseVersionReq(">=0.1.0"))
		if err := EncodeTo(os.Stdout, info); err != nil {
			os.Exit(1)
		}
		if kind == OneShot {
			os.Exit(0)
		}
		runEchoExecuteLoop()
	case MessageExecute:
		handleEchoExecute()
		if kind != OneShot {
			runEchoExecuteLoop()
		}
	}
}

func runEchoExecuteLoop() {
	for {
		var msg Message
		if err := DecodeFrom(os.Stdin, &msg); err != nil {
			return
		}
		if msg != MessageExecute {
			return
		}
		handleEchoExecute()
	}
}

func handleEchoExecute() {
	var hookName string
	if err := DecodeFrom(os.Stdin, &hookName); err != nil {
		return
	}
	var h evalHook
	if err := DecodeFrom(os.Stdin, &h); err != nil {
		return
	}
	_ = EncodeTo(os.Stdout, h.Input)
}

func runCounterOneShot() {
	runCounterScript(OneShot)
}

func runCounterDaemon() {
	runCounterScript(Daemon)
}

// runCounterScript answers RandomNumber with an incrementing counter.
// Over a Daemon transport the counter climbs across calls, proving the
// same process served every trigger; over OneShot it is always 1,
// since every trigger respawns a fresh process.
func runCounterScript(kind ScriptType) {
	var msg Message
	if err := DecodeFrom(os.Stdin, &msg); err != nil {
		os.Exit(1)
	}
	if msg == MessageExecute && kind == OneShot {
		// A OneShot execution spawn receives Execute first and serves
		// exactly this one call from a fresh count.
		var hookName string
		var h randomHook
		if DecodeFrom(os.Stdin, &hookName) != nil || DecodeFrom(os.Stdin, &h) != nil {
			os.Exit(1)
		}
		_ = EncodeTo(os.Stdout, 1)
		return
	}
	if msg != MessageGreeting {
		os.Exit(1)
	}
	info := NewScriptInfo("counter", kind, []string{"RandomNumber"}, MustParseVersionReq(">=0.1.0"))
	if err := EncodeTo(os.Stdout, info); err != nil {
		os.Exit(1)
	}
	if kind == OneShot {
		os.Exit(0)
	}

	count := 0
	for {
		var m2 Message
		if err := DecodeFrom(os.Stdin, &m2); err != nil {
			return
		}
		if m2 != MessageExecute {
			return
		}
		var hookName string
		if err := DecodeFrom(os.Stdin, &hookName); err != nil {
			return
		}
		var h randomHook
		if err := DecodeFrom(os.Stdin, &h); err != nil {
			return
		}
		count++
		_ = EncodeTo(os.Stdout, count)
	}
}

func runVersionMismatch() {
	var msg Message
	if err := DecodeFrom(os.Stdin, &msg); err != nil {
		os.Exit(1)
	}
	if msg != MessageGreeting {
		os.Exit(1)
	}
	info := NewScriptInfo("too-new", OneShot, []string{"Eval"}, MustParseVersionReq(">=99.0.0"))
	_ = EncodeTo(os.Stdout, info)
	os.Exit(0)
}

// runCrashOnExecute answers discovery normally but exits without
// replying on Execute, simulating a script that dies mid-dispatch.
func runCrashOnExecute() {
	var msg Message
	if err := DecodeFrom(os.Stdin, &msg); err != nil {
		os.Exit(1)
	}
	switch msg {
	case MessageGreeting:
		info := NewScriptInfo("crasher", OneShot, []string{"Eval"}, MustParseVersionReq(">=0.1.0"))
		_ = EncodeTo(os.Stdout, info)
		os.Exit(0)
	case MessageExecute:
		var hookName string
		_ = DecodeFrom(os.Stdin, &hookName)
		var h evalHook
		_ = DecodeFrom(os.Stdin, &h)
		os.Exit(1)
	}
}

// buildHelperScript copies the running test binary to dir/name, so
// that name's own discovery spawn re-executes this file's TestMain in
// helper mode.
func buildHelperScript(t *testing.T, dir, name string) string {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	src, err := os.ReadFile(self)
	if err != nil {
		t.Fatalf("reading test binary: %v", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, src, 0o755); err != nil {
		t.Fatalf("writing helper script: %v", err)
	}
	return dst
}

func TestAddScriptsByPathEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath on an empty directory: %v", err)
	}
	if len(m.Scripts()) != 0 {
		t.Fatalf("expected 0 scripts, got %d", len(m.Scripts()))
	}
}

func TestEchoOverOneShotProcessTransport(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "echo-oneshot")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	scripts := m.Scripts()
	if len(scripts) != 1 {
		t.Fatalf("expected 1 script, got %d", len(scripts))
	}

	out, err := Trigger[string](scripts[0], evalHook{Input: "hi"})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if out != "hi" {
		t.Fatalf("got %q, want hi", out)
	}
}

func TestEchoOverDaemonProcessTransport(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "echo-daemon")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	script := m.Scripts()[0]
	for _, input := range []string{"one", "two", "three"} {
		out, err := Trigger[string](script, evalHook{Input: input})
		if err != nil {
			t.Fatalf("Trigger(%q): %v", input, err)
		}
		if out != input {
			t.Fatalf("Trigger(%q) = %q", input, out)
		}
	}
}

func TestDaemonProcessCountStability(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "counter-daemon")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	script := m.Scripts()[0]
	for want := 1; want <= 3; want++ {
		got, err := Trigger[int](script, randomHook{})
		if err != nil {
			t.Fatalf("Trigger #%d: %v", want, err)
		}
		if got != want {
			t.Fatalf("Trigger #%d = %d, want %d (daemon should keep one process alive across calls)", want, got, want)
		}
	}
}

func TestOneShotRespawnsFreshProcessPerCall(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "counter-oneshot")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	script := m.Scripts()[0]
	for i := 0; i < 3; i++ {
		got, err := Trigger[int](script, randomHook{})
		if err != nil {
			t.Fatalf("Trigger #%d: %v", i, err)
		}
		if got != 1 {
			t.Fatalf("Trigger #%d = %d, want 1 (oneshot should respawn a fresh process every call)", i, got)
		}
	}
}

func TestVersionMismatchDuringDiscovery(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "version-mismatch")

	m := NewScriptManager()
	err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0"))
	if err == nil {
		t.Fatal("expected a version mismatch error")
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rerr.Kind != KindVersion {
		t.Fatalf("expected KindVersion, got %v", rerr.Kind)
	}
	if len(m.Scripts()) != 0 {
		t.Fatalf("a rejected script must not be registered, got %d scripts", len(m.Scripts()))
	}
}

func TestFanOutPartialFailure(t *testing.T) {
	dir := t.TempDir()
	// os.ReadDir sorts entries by filename, and "crash-on-execute"
	// sorts before "echo-oneshot", so the failing script is always
	// first in registry order.
	buildHelperScript(t, dir, "crash-on-execute")
	buildHelperScript(t, dir, "echo-oneshot")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	if len(m.Scripts()) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(m.Scripts()))
	}

	results := TriggerHook[string](m, evalHook{Input: "x"}).Collect()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Err == nil {
		t.Fatal("expected the crashing script's result to carry an error")
	}
	var rerr *Error
	if !errors.As(results[0].Err, &rerr) || rerr.Kind != KindIO {
		t.Fatalf("expected a KindIO error, got %v", results[0].Err)
	}

	if results[1].Err != nil {
		t.Fatalf("expected the echo script to succeed, got %v", results[1].Err)
	}
	if results[1].Value != "x" {
		t.Fatalf("got %q, want x", results[1].Value)
	}
}

func TestDirectTriggerOnNonListenerOverProcessTransport(t *testing.T) {
	dir := t.TempDir()
	buildHelperScript(t, dir, "echo-oneshot")

	m := NewScriptManager()
	if err := m.AddScriptsByPath(dir, MustParseVersion("0.1.0")); err != nil {
		t.Fatalf("AddScriptsByPath: %v", err)
	}
	defer m.Close()

	script := m.Scripts()[0]
	_, err := Trigger[int](script, randomHook{})
	if !errors.Is(err, ErrScriptIsNotListeningForHook) {
		t.Fatalf("expected ErrScriptIsNotListeningForHook, got %v", err)
	}
}
