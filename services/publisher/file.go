package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"sjsage522/carlistingworker/internal/listing"
	"sjsage522/carlistingworker/logger"
	crawlerrors "sjsage522/carlistingworker/pkg/errors"
)

// outputFile is the part of *os.File the file sink uses.
type outputFile interface {
	io.WriteSeeker
	Truncate(size int64) error
	Sync() error
	Close() error
}

// FilePublisher appends records to a JSON lines file. A batch lands whole or not
// at all: a failed write is truncated back to where the batch started.
type FilePublisher struct {
	mu   sync.Mutex
	path string
	file outputFile
	log  *logger.Logger
}

// NewFilePublisher opens path for appending, creating parent directories as needed.
func NewFilePublisher(path string) (*FilePublisher, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, crawlerrors.NewPublisher(SinkFile, "failed to create output directory", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, crawlerrors.NewPublisher(SinkFile, "failed to open output file", err)
	}

	return &FilePublisher{path: path, file: f, log: logger.ForPublisher(SinkFile)}, nil
}

// PushBatch writes one JSON object per line and syncs the file.
func (p *FilePublisher) PushBatch(ctx context.Context, records []listing.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return crawlerrors.NewPublisher(SinkFile, "failed to encode record", err)
		}
	}

	offset, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return crawlerrors.NewPublisher(SinkFile, "failed to seek output file", err)
	}
	if _, err := p.file.Write(buf.Bytes()); err != nil {
		if terr := p.file.Truncate(offset); terr != nil {
			p.log.Error().Err(terr).Int64("offset", offset).Msg("Failed to roll back partial batch")
		}
		return crawlerrors.NewPublisher(SinkFile, "failed to write batch", err)
	}
	if err := p.file.Sync(); err != nil {
		return crawlerrors.NewPublisher(SinkFile, "failed to sync output file", err)
	}

	p.log.Debug().Str("path", p.path).Int("records", len(records)).Msg("Batch written")
	return nil
}

// Close closes the file.
func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Close()
}
