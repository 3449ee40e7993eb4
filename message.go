package rscript

// Message is the process-transport handshake tag, written by the host
// before every Greeting and before every Execute request. Not used on
// the DynamicLib transport.
type Message int

const (
	// MessageGreeting precedes a discovery handshake; the script
	// replies with a ScriptInfo and, if it is a OneShot script, exits.
	MessageGreeting Message = iota
	// MessageExecute precedes a (hook name, hook input) pair; the
	// script replies with the hook's output.
	MessageExecute
)

func (m Message) String() string {
	switch m {
	case MessageGreeting:
		return "Greeting"
	case MessageExecute:
		return "Execute"
	default:
		return "Unknown"
	}
}
