package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator wraps a log file and keeps it from growing past a fixed number
// of lines. The file is rewritten with the newest lines once twice the limit
// has been written.
type LogRotator struct {
	writer   io.Writer
	buffer   *RingBuffer
	filePath string
	mu       sync.Mutex
}

// NewLogRotator creates a new LogRotator over writer, which must be the
// open file at filePath.
func NewLogRotator(writer io.Writer, maxLines int, filePath string) *LogRotator {
	return &LogRotator{
		writer:   writer,
		buffer:   NewRingBuffer(maxLines),
		filePath: filePath,
	}
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.writer.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.Add(line)

		if w.buffer.Seen() >= w.buffer.Cap()*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}
			w.buffer.Reset()
		}
	}

	return n, nil
}

// Sync flushes the underlying file when it supports syncing.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if syncer, ok := w.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close closes the underlying file when it is closable.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if closer, ok := w.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// rotate replaces the file with the buffered lines and reopens it.
func (w *LogRotator) rotate() error {
	lines := w.buffer.Lines()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.filePath), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	_, err = temp.WriteString(strings.Join(lines, "\n") + "\n")
	if err == nil {
		err = temp.Sync()
	}
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Join(err, os.Remove(tempPath))
	}

	if closer, ok := w.writer.(io.Closer); ok {
		_ = closer.Close()
	}

	// Windows refuses to rename over an existing file
	_ = os.Remove(w.filePath)

	if err := os.Rename(tempPath, w.filePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.writer = file

	return nil
}
