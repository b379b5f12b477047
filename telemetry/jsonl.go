package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/nathoo/cosmicisles/types"
)

// JSONL appends events to zstd-compressed JSON lines files, one file per
// UTC day.
type JSONL struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONL(baseDir, prefix string) *JSONL {
	return &JSONL{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (j *JSONL) Report(_ context.Context, ev types.ProgressEvent) error {
	return j.Write(ev)
}

// Write appends one JSON line and flushes it through the encoder.
func (j *JSONL) Write(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	day := j.now().UTC().Format("2006-01-02")
	if day != j.curDay {
		if err := j.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.enc.Flush()
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *JSONL) rotateLocked(day string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	path := j.PathFor(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 32*1024)
	j.curDay = day
	return nil
}

func (j *JSONL) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.curDay = ""
	return err
}

// PathFor returns the file that holds the events of day (YYYY-MM-DD).
func (j *JSONL) PathFor(day string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", j.prefix, day))
}

// ReadJSONL decodes every event from a file written by JSONL. Appended
// sessions produce concatenated zstd frames, which the decoder reads in turn.
func ReadJSONL(path string) ([]types.ProgressEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var events []types.ProgressEvent
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev types.ProgressEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return events, fmt.Errorf("%s: %w", path, err)
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}
