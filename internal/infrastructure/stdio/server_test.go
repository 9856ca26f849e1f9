package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	registry := tools.NewRegistry(tools.Deps{Log: zerolog.Nop(), TopK: 10})
	return NewServer(registry, sess, zerolog.Nop())
}

func TestServe_DispatchesEachLine(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(
		`{"id":1,"tool":"database.create","args":{"name":"corpus-a"}}` + "\n" +
			`{"id":2,"tool":"database.list"}` + "\n",
	)
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines, got %d: %q", len(lines), out.String())
	}

	var f1 frame
	if err := json.Unmarshal([]byte(lines[0]), &f1); err != nil {
		t.Fatalf("decode frame 1: %v", err)
	}
	if !f1.Success {
		t.Fatalf("expected database.create to succeed: %+v", f1.Error)
	}

	var f2 frame
	if err := json.Unmarshal([]byte(lines[1]), &f2); err != nil {
		t.Fatalf("decode frame 2: %v", err)
	}
	if !f2.Success {
		t.Fatalf("expected database.list to succeed: %+v", f2.Error)
	}
}

func TestServe_MalformedLineEmitsValidationErrorAndContinues(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(
		`not json` + "\n" +
			`{"id":1,"tool":"database.list"}` + "\n",
	)
	var out bytes.Buffer

	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 response lines (one error, one success), got %d: %q", len(lines), out.String())
	}

	var f1 frame
	if err := json.Unmarshal([]byte(lines[0]), &f1); err != nil {
		t.Fatalf("decode frame 1: %v", err)
	}
	if f1.Success || f1.Error.Category != "VALIDATION_ERROR" {
		t.Fatalf("expected a VALIDATION_ERROR frame for the malformed line, got %+v", f1)
	}

	var f2 frame
	if err := json.Unmarshal([]byte(lines[1]), &f2); err != nil {
		t.Fatalf("decode frame 2: %v", err)
	}
	if !f2.Success {
		t.Fatalf("expected the well-formed line after it to still succeed: %+v", f2.Error)
	}
}

func TestServe_EmptyInputProducesNoOutput(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(""), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output for empty input, got %q", out.String())
	}
}

func TestServe_StopsOnContextCancellation(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := strings.NewReader(`{"id":1,"tool":"database.list"}` + "\n")
	var out bytes.Buffer
	err := s.Serve(ctx, in, &out)
	if err == nil {
		t.Fatalf("expected Serve to return the cancellation error")
	}
}
