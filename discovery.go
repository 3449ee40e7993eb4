package rscript

import (
	"os"
	"path/filepath"
	"plugin"
)

// AddScriptsByPath discovers executable-transport (OneShot/Daemon)
// scripts in dir. Sub-directories are not recursed. A failure on any
// one entry aborts the whole call; endpoints already appended before
// the failure remain in the registry.
func (m *ScriptManager) AddScriptsByPath(dir string, hostVersion Version) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newIOError("discover", err)
	}

	dynExt := dynamicLibExtension()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if filepath.Ext(path) == dynExt {
			continue
		}

		script, err := m.discoverExecutable(path, hostVersion)
		if err != nil {
			return err
		}
		m.registry = append(m.registry, script)
	}

	return nil
}

func (m *ScriptManager) discoverExecutable(path string, hostVersion Version) (*Script, error) {
	cmd, stdin, stdout, err := spawnProcess(path)
	if err != nil {
		return nil, err
	}

	if err := EncodeTo(stdin, MessageGreeting); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return nil, err
	}

	var info ScriptInfo
	if err := DecodeFrom(stdout, &info); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return nil, err
	}

	if !info.VersionRequirement.Matches(hostVersion) {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, newVersionMismatchError(hostVersion, info.VersionRequirement)
	}

	t := transport{path: path}
	switch info.Type {
	case Daemon:
		t.kind = transportDaemon
		t.cmd = cmd
		t.stdin = stdin
		t.stdout = stdout
	default:
		// OneShot: the discovery-time process is expected to exit(0)
		// right after replying to the Greeting. We still hold the
		// (likely already-exited) handle here; closing its pipes and
		// reaping it in the background is harmless either way and
		// avoids blocking discovery on the dead child.
		t.kind = transportOneShot
		_ = stdin.Close()
		_ = stdout.Close()
		go func() { _ = cmd.Wait() }()
	}

	return &Script{info: info, state: stateActive, transport: t}, nil
}

// AddDynamicScriptsByPath discovers DynamicLib scripts in dir. Loading
// arbitrary code from disk has no memory-safety guarantees the Go
// compiler can check; that hazard is documented here since Go has no
// unsafe-function qualifier to carry it on the signature.
func (m *ScriptManager) AddDynamicScriptsByPath(dir string, hostVersion Version) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newIOError("discover", err)
	}

	dynExt := dynamicLibExtension()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if filepath.Ext(path) != dynExt {
			continue
		}

		script, err := m.discoverDynamicLib(path, hostVersion)
		if err != nil {
			return err
		}
		m.registry = append(m.registry, script)
	}

	return nil
}

func (m *ScriptManager) discoverDynamicLib(path string, hostVersion Version) (*Script, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, newDynamicLibError("load", err)
	}

	sym, err := lib.Lookup(scriptSymbolName)
	if err != nil {
		return nil, newDynamicLibError("lookup", err)
	}

	export, ok := sym.(*ScriptExport)
	if !ok {
		return nil, newDynamicLibError("lookup", errBadScriptSymbol)
	}

	buf := export.Info()
	defer buf.Free()

	info, err := DeserializeFFI[ScriptInfo](buf)
	if err != nil {
		return nil, err
	}

	if !info.VersionRequirement.Matches(hostVersion) {
		return nil, newVersionMismatchError(hostVersion, info.VersionRequirement)
	}

	t := transport{kind: transportDynamicLib, lib: lib, export: export}
	return &Script{info: info, state: stateActive, transport: t}, nil
}

type errBadScriptSymbolType struct{}

func (errBadScriptSymbolType) Error() string {
	return "SCRIPT symbol is not a *rscript.ScriptExport"
}

var errBadScriptSymbol = errBadScriptSymbolType{}
