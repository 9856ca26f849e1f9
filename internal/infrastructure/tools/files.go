package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerFileTools wires spec.md §6's "files (upload, list, get,
// download, delete, ingest_uploaded)" family: a staging area distinct
// from the provenance graph, so a caller can push bytes over the wire
// before deciding whether (and when) to ingest them.
func registerFileTools(r *Registry, deps Deps) {
	r.register("files.upload", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Filename   string `json:"filename"`
			DataBase64 string `json:"data_base64"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Filename == "" || args.DataBase64 == "" {
			return nil, corpuserr.Validationf("filename and data_base64 are required")
		}
		data, err := base64.StdEncoding.DecodeString(args.DataBase64)
		if err != nil {
			return nil, corpuserr.Validationf("data_base64 is not valid base64: %v", err)
		}
		dir := uploadsDir(sess)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, corpuserr.Internalf("creating uploads directory: %v", err)
		}
		fileID := uuid.NewString()
		dest := filepath.Join(dir, fileID+"_"+filepath.Base(args.Filename))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, corpuserr.Internalf("writing uploaded file: %v", err)
		}
		return map[string]any{"file_id": fileID, "path": dest, "bytes": len(data)}, nil
	})

	r.register("files.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		entries, err := os.ReadDir(uploadsDir(sess))
		if os.IsNotExist(err) {
			return map[string]any{"files": []string{}}, nil
		}
		if err != nil {
			return nil, corpuserr.Internalf("listing uploads: %v", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		return map[string]any{"files": names}, nil
	})

	r.register("files.get", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		path, cerr := resolveUpload(sess, raw)
		if cerr != nil {
			return nil, cerr
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, corpuserr.PathMissing(path)
		}
		return map[string]any{"path": path, "bytes": info.Size(), "modified_at": info.ModTime()}, nil
	})

	r.register("files.download", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		path, cerr := resolveUpload(sess, raw)
		if cerr != nil {
			return nil, cerr
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, corpuserr.PathMissing(path)
		}
		return map[string]any{"path": path, "data_base64": base64.StdEncoding.EncodeToString(data)}, nil
	})

	r.register("files.delete", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		path, cerr := resolveUpload(sess, raw)
		if cerr != nil {
			return nil, cerr
		}
		if err := os.Remove(path); err != nil {
			return nil, corpuserr.Internalf("deleting upload: %v", err)
		}
		return map[string]any{"deleted": path}, nil
	})

	r.register("files.ingest_uploaded", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		path, cerr := resolveUpload(sess, raw)
		if cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		res, err := svc.orch.ScanPath(ctx, path)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("ingesting upload %q: %v", path, err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return res, nil
	})
}

// uploadsDir is per-database, rooted under the process-wide config's
// storage path: each selected database gets its own staging area so an
// upload never leaks across databases.
func uploadsDir(sess *usecases.Session) string {
	_, name, cerr := sess.CurrentDatabase()
	if cerr != nil {
		name = "default"
	}
	return filepath.Join(sess.Config().DefaultStoragePath, "uploads", name)
}

func resolveUpload(sess *usecases.Session, raw json.RawMessage) (string, *corpuserr.Error) {
	var args struct {
		FileID string `json:"file_id"`
		Path   string `json:"path"`
	}
	if cerr := decode(raw, &args); cerr != nil {
		return "", cerr
	}
	if args.Path != "" {
		return args.Path, nil
	}
	if args.FileID == "" {
		return "", corpuserr.Validationf("file_id or path is required")
	}
	dir := uploadsDir(sess)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", corpuserr.PathMissing(args.FileID)
	}
	for _, e := range entries {
		if len(e.Name()) >= len(args.FileID) && e.Name()[:len(args.FileID)] == args.FileID {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", corpuserr.PathMissing(args.FileID)
}
