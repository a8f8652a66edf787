package executor

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/madhatter5501/aegis/internal/apperr"
	"github.com/madhatter5501/aegis/internal/bus"
)

// maxReadBytes is spec.md §4.6's read cap: "up to 100,000 bytes with a
// truncated flag".
const maxReadBytes = 100000

type fileRequestBody struct {
	Operation   string `json:"operation"`
	Path        string `json:"path"`
	Content     string `json:"content"`
	Destination string `json:"destination"`
}

func (e *Executor) handleFileRequest(ctx context.Context, msg bus.Message) error {
	var req fileRequestBody
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		return e.replyErr(msg, bus.TypeFileComplete, "decode file_request", err)
	}

	payload, err := e.runFileOperation(req)
	if err != nil {
		return e.replyErr(msg, bus.TypeFileComplete, "file operation", err)
	}

	_, sendErr := e.bus.SendResult(Name, msg.From, bus.TypeFileComplete, payload, bus.PriorityMedium, msg.ID)
	return sendErr
}

// runFileOperation dispatches on operation per spec.md §4.6: create
// overwrites and creates parent directories, edit requires the file
// already exist, delete handles both files and directories, read caps
// at maxReadBytes with a truncated flag, copy/move operate on the
// destination field.
func (e *Executor) runFileOperation(req fileRequestBody) (map[string]any, error) {
	switch req.Operation {
	case "create":
		if err := os.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create parent directories for %s", req.Path)
		}
		if err := os.WriteFile(req.Path, []byte(req.Content), 0o644); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create %s", req.Path)
		}
		return map[string]any{"success": true, "operation": req.Operation, "path": req.Path}, nil

	case "edit":
		if _, err := os.Stat(req.Path); err != nil {
			return nil, apperr.New(apperr.KindNotFound, "cannot edit %s: does not exist", req.Path)
		}
		if err := os.WriteFile(req.Path, []byte(req.Content), 0o644); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "edit %s", req.Path)
		}
		return map[string]any{"success": true, "operation": req.Operation, "path": req.Path}, nil

	case "delete":
		if err := os.RemoveAll(req.Path); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "delete %s", req.Path)
		}
		return map[string]any{"success": true, "operation": req.Operation, "path": req.Path}, nil

	case "read":
		return readFile(req.Path)

	case "copy":
		if err := copyFile(req.Path, req.Destination); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "operation": req.Operation, "path": req.Path, "destination": req.Destination}, nil

	case "move":
		if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create parent directories for %s", req.Destination)
		}
		if err := os.Rename(req.Path, req.Destination); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "move %s to %s", req.Path, req.Destination)
		}
		return map[string]any{"success": true, "operation": req.Operation, "path": req.Path, "destination": req.Destination}, nil

	default:
		return nil, apperr.New(apperr.KindInvalidInput, "unknown file operation %q", req.Operation)
	}
}

func readFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "read %s", path)
	}
	defer f.Close()

	buf := make([]byte, maxReadBytes+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "read %s", path)
	}
	truncated := n > maxReadBytes
	if truncated {
		n = maxReadBytes
	}
	return map[string]any{
		"success":   true,
		"operation": "read",
		"path":      path,
		"content":   string(buf[:n]),
		"truncated": truncated,
	}, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "create parent directories for %s", dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return apperr.Wrap(apperr.KindNotFound, err, "copy %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, err, "copy %s to %s", src, dst)
	}
	return nil
}
