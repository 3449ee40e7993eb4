package rscript

import "context"

// HookResult pairs one endpoint's Trigger outcome with the endpoint
// that produced it, so a caller consuming the full ResultSeq can still
// tell which script answered.
type HookResult[O any] struct {
	Script *Script
	Value  O
	Err    error
}

// ResultSeq is the lazy, pull-based sequence TriggerHook returns.
// Each call to Next performs exactly one endpoint's dispatch;
// nothing is dispatched ahead of the caller pulling it, so a consumer
// that only wants the first script's answer never pays for the rest.
type ResultSeq[O any] struct {
	scripts []*Script
	hook    Hook[O]
	idx     int
	ctx     context.Context
}

// Next advances the sequence, dispatching to the next matched
// endpoint and returning its result. The second return value is false
// once every matched endpoint has been visited.
func (r *ResultSeq[O]) Next() (HookResult[O], bool) {
	if r.idx >= len(r.scripts) {
		return HookResult[O]{}, false
	}
	s := r.scripts[r.idx]
	r.idx++

	var value O
	var err error
	if r.ctx != nil {
		err = traceDispatch(r.ctx, s, r.hook.HookName(), func() error {
			var callErr error
			value, callErr = Trigger[O](s, r.hook)
			return callErr
		})
	} else {
		value, err = Trigger[O](s, r.hook)
	}
	return HookResult[O]{Script: s, Value: value, Err: err}, true
}

// First pulls and returns only the first result, for a caller that
// only wants one script's answer.
func (r *ResultSeq[O]) First() (HookResult[O], bool) {
	return r.Next()
}

// Collect drains the sequence to completion and returns every result
// in registry order. Use when every script's answer is needed.
func (r *ResultSeq[O]) Collect() []HookResult[O] {
	out := make([]HookResult[O], 0, len(r.scripts)-r.idx)
	for {
		res, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, res)
	}
}
