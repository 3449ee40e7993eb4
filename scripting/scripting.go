// Package scripting provides the script-side half of the process
// transport protocol: the Greeting/Execute state machine every OneShot
// or Daemon executable must implement to be discoverable.
package scripting

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	rscript "github.com/sigmaSd/Rscript"
)

// Scripter is implemented by a script's own entry point. Name,
// ScriptType and Hooks describe the script for the handshake;
// VersionRequirement states which host versions this script accepts.
type Scripter interface {
	Name() string
	ScriptType() rscript.ScriptType
	Hooks() []string
	VersionRequirement() rscript.VersionReq
}

// Runtime drives a Scripter over a pair of streams. Stdio and
// BufferedStdio build one over os.Stdin/os.Stdout; a Runtime built
// directly has no default streams. Tests substitute pipes here instead
// of the real process stdio.
type Runtime struct {
	In  io.Reader
	Out io.Writer
}

// Stdio returns a Runtime wired to the process's real stdin/stdout.
func Stdio() *Runtime {
	return &Runtime{In: os.Stdin, Out: os.Stdout}
}

// BufferedStdio returns a Runtime over buffered stdin/stdout, useful
// for Daemon scripts issuing many small reads/writes over their
// lifetime. Run flushes Out after the greeting reply and after every
// hook regardless.
func BufferedStdio() *Runtime {
	return &Runtime{In: bufio.NewReader(os.Stdin), Out: bufio.NewWriter(os.Stdout)}
}

// Run drives the full state machine an executable script must
// implement: read one Message; if it is Greeting, reply with
// a ScriptInfo built from s and, for a OneShot script, exit(0)
// immediately (the discovery invocation never sees a hook). Otherwise
// the message must be Execute — true on every execution invocation of
// a OneShot script, since those are spawned fresh and never receive a
// Greeting — so it reads the hook name and calls handle, which is
// responsible for reading the hook body with Read and writing the
// reply with Write. A Daemon script loops, reading a new Message
// before each subsequent hook, until its stdin is closed.
func (rt *Runtime) Run(s Scripter, handle func(hookName string) error) error {
	msg, err := rt.readFirstMessage()
	if err != nil {
		return err
	}

	if msg == rscript.MessageGreeting {
		if err := rt.reply(s); err != nil {
			return err
		}
		if s.ScriptType() == rscript.OneShot {
			os.Exit(0)
		}
		return rt.loop(s, handle)
	}

	if msg != rscript.MessageExecute {
		return fmt.Errorf("rscript/scripting: unexpected message %v", msg)
	}
	if err := rt.handleOne(handle); err != nil {
		return err
	}
	if s.ScriptType() == rscript.OneShot {
		return nil
	}
	return rt.loop(s, handle)
}

func (rt *Runtime) readFirstMessage() (rscript.Message, error) {
	var msg rscript.Message
	err := rscript.DecodeFrom(rt.In, &msg)
	return msg, err
}

func (rt *Runtime) reply(s Scripter) error {
	info := rscript.NewScriptInfo(s.Name(), s.ScriptType(), s.Hooks(), s.VersionRequirement())
	if err := rscript.EncodeTo(rt.Out, info); err != nil {
		return err
	}
	return rt.flush()
}

// loop handles Execute messages until stdin is exhausted. It is only
// reached by Daemon scripts: Run returns directly after one hook for
// OneShot.
func (rt *Runtime) loop(s Scripter, handle func(hookName string) error) error {
	for {
		var msg rscript.Message
		if err := rscript.DecodeFrom(rt.In, &msg); err != nil {
			// DecodeFrom reports a stream that ends before a new frame
			// as a KindIO error; a truncated frame is KindCodec.
			var rerr *rscript.Error
			if errors.As(err, &rerr) && rerr.Kind == rscript.KindIO {
				return nil
			}
			return err
		}
		if msg != rscript.MessageExecute {
			return fmt.Errorf("rscript/scripting: expected Execute, got %v", msg)
		}
		if err := rt.handleOne(handle); err != nil {
			return err
		}
	}
}

func (rt *Runtime) handleOne(handle func(hookName string) error) error {
	var hookName string
	if err := rscript.DecodeFrom(rt.In, &hookName); err != nil {
		return err
	}
	if err := handle(hookName); err != nil {
		return err
	}
	return rt.flush()
}

func (rt *Runtime) flush() error {
	if f, ok := rt.Out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

type flusher interface {
	Flush() error
}

// Read decodes one hook value of type T from rt.In. Call it from
// inside the handler passed to Run to read the hook body the wire
// protocol places right after the hook name.
func Read[T any](rt *Runtime) (T, error) {
	var out T
	err := rscript.DecodeFrom(rt.In, &out)
	return out, err
}

// Write encodes value to rt.Out as the hook's output.
func Write[T any](rt *Runtime, value T) error {
	return rscript.EncodeTo(rt.Out, value)
}
