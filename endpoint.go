package rscript

import (
	"io"

	"github.com/mitchellh/copystructure"
)

// activeState is an endpoint's active/inactive dispatch eligibility.
type activeState int

const (
	stateActive activeState = iota
	stateInactive
)

// Script is a single discovered extension: its metadata, its
// active/inactive state, and its transport-specific dispatch
// implementation.
type Script struct {
	info      ScriptInfo
	state     activeState
	transport transport
}

// Metadata returns the endpoint's handshake-time ScriptInfo.
func (s *Script) Metadata() ScriptInfo {
	return s.info
}

// Activate marks the endpoint eligible to receive fan-out dispatch via
// TriggerHook.
func (s *Script) Activate() {
	s.state = stateActive
}

// Deactivate marks the endpoint ineligible for fan-out dispatch.
// Trigger called directly still dispatches regardless of state.
func (s *Script) Deactivate() {
	s.state = stateInactive
}

// IsActive reports the endpoint's current active/inactive state.
func (s *Script) IsActive() bool {
	return s.state == stateActive
}

// IsListeningForName reports whether the endpoint declared hookName
// during its handshake.
func (s *Script) IsListeningForName(hookName string) bool {
	return s.info.Listens(hookName)
}

// IsListeningFor is a generic convenience wrapper over IsListeningForName;
// Go methods cannot carry their own type parameters, so it is a
// package-level function over the hook value.
func IsListeningFor[O any](s *Script, hook Hook[O]) bool {
	return s.IsListeningForName(hook.HookName())
}

// Trigger dispatches hook to this endpoint, bypassing active/inactive
// state entirely. It returns ErrScriptIsNotListeningForHook if the
// endpoint never declared hook.HookName() during discovery.
func Trigger[O any](s *Script, hook Hook[O]) (O, error) {
	var zero O

	if !s.IsListeningForName(hook.HookName()) {
		return zero, newRoutingError()
	}

	logDispatchStart(s, hook.HookName(), copyForLog(hook))

	switch s.transport.kind {
	case transportDaemon:
		return dispatchStream[O](s, hook, s.transport.stdin, s.transport.stdout)
	case transportOneShot:
		cmd, stdin, stdout, err := spawnProcess(s.transport.path)
		if err != nil {
			return zero, err
		}
		defer func() {
			_ = stdin.Close()
			_ = cmd.Wait()
		}()
		return dispatchStream[O](s, hook, stdin, stdout)
	case transportDynamicLib:
		return dispatchDynamicLib[O](s, hook)
	default:
		return zero, newIOError("trigger", errUnknownTransport)
	}
}

// dispatchStream writes the Execute message, the hook name, and the
// hook itself, then reads back one value of O. For both Daemon and
// OneShot the stream is a plain concatenation of codec frames with no
// extra framing.
func dispatchStream[O any](s *Script, hook Hook[O], w io.Writer, r io.Reader) (out O, err error) {
	defer func() { logDispatchDone(s, hook.HookName(), err) }()

	if err = EncodeTo(w, MessageExecute); err != nil {
		return out, err
	}
	if err = EncodeTo(w, hook.HookName()); err != nil {
		return out, err
	}
	if err = EncodeTo(w, hook); err != nil {
		return out, err
	}

	if err = DecodeFrom(r, &out); err != nil {
		return out, err
	}

	return out, nil
}

func dispatchDynamicLib[O any](s *Script, hook Hook[O]) (out O, err error) {
	defer func() { logDispatchDone(s, hook.HookName(), err) }()

	var input FFIBuffer
	input, err = SerializeFrom(hook)
	if err != nil {
		return out, err
	}

	result := s.transport.export.Script(NewFFIString(hook.HookName()), input)
	defer result.Free()

	out, err = DeserializeFFI[O](result)
	if err != nil {
		return out, err
	}

	return out, nil
}

// copyForLog deep-copies value with copystructure before it is handed
// to the structured logger, so logging a hook's input can never alias
// or retain state the caller still owns.
func copyForLog(value interface{}) interface{} {
	cp, err := copystructure.Copy(value)
	if err != nil {
		return value
	}
	return cp
}

var errUnknownTransport = errUnknownTransportType{}

type errUnknownTransportType struct{}

func (errUnknownTransportType) Error() string { return "unknown transport kind" }
