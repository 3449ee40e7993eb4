package rscript

// Hook is the compile-time binding of a hook's wire name to its output
// type: the host declares a hook by defining a struct that implements
// Hook[O] for its own output type O. The struct's own exported fields
// are the hook's input and must be codec-serializable.
//
// A script written against mismatched hook definitions will still
// compile, since the wire contract is only the name string; a
// mismatch is only caught as a codec error at dispatch time.
type Hook[O any] interface {
	// HookName returns the routing key shared by host and script. It
	// must be a compile-time constant for a given hook type.
	HookName() string
}
