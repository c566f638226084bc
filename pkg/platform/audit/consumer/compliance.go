package consumer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	audit "stagegate/pkg/platform/audit"
)

// Archiver is the long-retention sink for the compliance stream.
type Archiver interface {
	Archive(ctx context.Context, entry audit.Entry) error
}

// ComplianceHandler writes every entry to the archive. Strict: an archive
// failure propagates so the offset is not committed and the entry is
// redelivered. The compliance stream is the one with a retention obligation.
type ComplianceHandler struct {
	archive Archiver
}

func NewComplianceHandler(archive Archiver) *ComplianceHandler {
	return &ComplianceHandler{archive: archive}
}

func (h *ComplianceHandler) Handle(ctx context.Context, entry audit.Entry) error {
	if err := h.archive.Archive(ctx, entry); err != nil {
		return fmt.Errorf("archive entry %s: %w", entry.ID, err)
	}
	return nil
}

// FileArchive appends entries as JSON lines to a local archive file that a
// log shipper picks up. Writes are flushed per entry; redelivery after a
// crash can duplicate lines, and downstream dedupes on entry id.
type FileArchive struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func NewFileArchive(path string) (*FileArchive, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit archive: %w", err)
	}
	return &FileArchive{file: f, writer: bufio.NewWriter(f)}, nil
}

func (a *FileArchive) Archive(_ context.Context, entry audit.Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal archive entry: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write archive entry: %w", err)
	}
	return a.writer.Flush()
}

func (a *FileArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writer.Flush(); err != nil {
		return err
	}
	return a.file.Close()
}
