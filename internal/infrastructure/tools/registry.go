// Package tools implements the typed tool surface of spec.md §6: each
// transport (stdio, httpapi) dispatches a named call through the same
// Registry so the two transports never diverge in behavior. There is no
// teacher equivalent — the teacher exposes three bare http.ServeMux
// routes — so this is built in the teacher's plain-struct, no-framework
// style, generalized to the much larger tool set spec.md names.
package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// Handler executes one tool call against the session's currently selected
// database (or the session itself, for database-lifecycle tools).
type Handler func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error)

// Registry maps tool names to handlers. It is built once at startup by
// NewRegistry and is read-only afterward, so both transports can share one
// instance across goroutines without locking.
type Registry struct {
	handlers map[string]Handler
}

func newRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) register(name string, h Handler) {
	r.handlers[name] = h
}

// Names lists every registered tool, sorted by category then name (names
// are "<category>.<tool>", so a plain string sort gives that order).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ErrorPayload is the normalized error shape of spec.md §7.
type ErrorPayload struct {
	Category string         `json:"category"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Response is the normalized tool-call envelope every transport returns
// (spec.md §7 "Propagation"): {success, result} or {success: false, error}.
type Response struct {
	Success bool          `json:"success"`
	Result  any           `json:"result,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// Dispatch looks up name, decodes args against the handler, and normalizes
// any *corpuserr.Error into the {success:false, error} envelope. An
// unknown tool name is itself a VALIDATION_ERROR, not a panic or a bare
// Go error, so the transport never needs its own fallback case.
func (r *Registry) Dispatch(ctx context.Context, sess *usecases.Session, name string, args json.RawMessage) Response {
	h, ok := r.handlers[name]
	if !ok {
		return errorResponse(corpuserr.Validationf("unknown tool %q", name))
	}
	result, cerr := h(ctx, sess, args)
	if cerr != nil {
		return errorResponse(cerr)
	}
	return Response{Success: true, Result: result}
}

func errorResponse(cerr *corpuserr.Error) Response {
	return Response{
		Success: false,
		Error: &ErrorPayload{
			Category: string(cerr.Cat),
			Message:  cerr.Message,
			Details:  cerr.Details,
		},
	}
}

// decode unmarshals raw into v, normalizing a decode failure into a
// VALIDATION_ERROR (spec.md §7 "input failed its schema").
func decode(raw json.RawMessage, v any) *corpuserr.Error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return corpuserr.Validationf("decoding tool arguments: %v", err)
	}
	return nil
}

// currentStore resolves the session's selected database, normalizing the
// no-selection case to DATABASE_NOT_SELECTED (spec.md §7).
func currentStore(sess *usecases.Session) (ports.Store, *corpuserr.Error) {
	store, _, cerr := sess.CurrentDatabase()
	if cerr != nil {
		return nil, cerr
	}
	return store, nil
}
