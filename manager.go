// Package rscript lets a host program declare typed hooks and dispatch
// them to third-party scripts over three interchangeable transports:
// a long-lived Daemon process, a fresh-per-call OneShot process, or an
// in-process DynamicLib plugin. A ScriptManager discovers scripts from
// a directory, checks each one's declared version requirement against
// the host's own version, and fans a hook out to every active,
// listening endpoint through a single Trigger/TriggerHook call
// regardless of which transport answers it.
package rscript

import "runtime"

// ScriptManager discovers scripts over a directory, gates them by
// version requirement, and fans out Trigger calls to every active,
// listening endpoint in registry order.
type ScriptManager struct {
	registry []*Script
}

// NewScriptManager returns an empty manager, ready for
// AddScriptsByPath / AddDynamicScriptsByPath.
func NewScriptManager() *ScriptManager {
	return &ScriptManager{}
}

// Scripts returns the registry in insertion order. The returned slice
// aliases the manager's own endpoints, so callers may call Activate/
// Deactivate on them directly — a *Script is always mutable through
// its pointer, so one accessor covers both read and mutate access.
func (m *ScriptManager) Scripts() []*Script {
	return m.registry
}

// Close tears down every Daemon endpoint's child process. OneShot
// endpoints have no live process to stop, and DynamicLib endpoints are
// unloaded with the process (Go's plugin package has no explicit
// unload). Errors from killing an already-exited child are swallowed.
func (m *ScriptManager) Close() error {
	for _, s := range m.registry {
		if s.transport.kind == transportDaemon {
			s.transport.killDaemon()
		}
	}
	return nil
}

func dynamicLibExtension() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// TriggerHook fans out hook to every endpoint that is Active and
// listening for hook.HookName(), in registry order, returning a lazy
// pull-sequence of per-endpoint results: it must not eagerly dispatch
// to every endpoint, only as the caller pulls via Next.
func TriggerHook[O any](m *ScriptManager, hook Hook[O]) *ResultSeq[O] {
	matched := make([]*Script, 0, len(m.registry))
	for _, s := range m.registry {
		if s.IsActive() && s.IsListeningForName(hook.HookName()) {
			matched = append(matched, s)
		}
	}
	return &ResultSeq[O]{scripts: matched, hook: hook}
}
