// Package stdio implements spec.md §6's stdio JSON-RPC transport: one
// newline-framed JSON request per line on stdin, one newline-framed JSON
// response per line on stdout. Stdout is reserved strictly for the
// protocol stream; every log line goes to stderr instead, the same split
// the teacher enforces between its log.Printf diagnostics (stderr by
// default) and its actual HTTP response bodies.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

// Request is one line of the stdio protocol: a tool name, its arguments,
// and an id the caller echoes back to correlate the response.
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// frame is the response envelope: tools.Response plus the echoed id.
type frame struct {
	ID json.RawMessage `json:"id,omitempty"`
	tools.Response
}

// Server reads Requests from r and writes frames to w, one per line,
// until r is exhausted or ctx is canceled. All calls run against
// usecases.LocalSessionID, the well-known session id stdio clients share
// (spec.md §4.5) — there is exactly one caller on a stdio pipe.
type Server struct {
	registry *tools.Registry
	sess     *usecases.Session
	log      zerolog.Logger
}

// NewServer builds a Server bound to registry/sess.
func NewServer(registry *tools.Registry, sess *usecases.Session, log zerolog.Logger) *Server {
	return &Server{registry: registry, sess: sess, log: log}
}

// Serve runs the read-dispatch-write loop until r hits EOF, a line fails
// to decode and the loop reports a VALIDATION_ERROR frame before
// continuing, or ctx is canceled between lines.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.sess.ToolSessionFor(usecases.LocalSessionID, "")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("stdio: malformed request line")
			if encErr := enc.Encode(frame{Response: tools.Response{
				Success: false,
				Error:   &tools.ErrorPayload{Category: "VALIDATION_ERROR", Message: "malformed request line: " + err.Error()},
			}}); encErr != nil {
				return encErr
			}
			continue
		}

		resp := s.registry.Dispatch(ctx, s.sess, req.Tool, req.Args)
		if err := enc.Encode(frame{ID: req.ID, Response: resp}); err != nil {
			return err
		}
	}
	return scanner.Err()
}
