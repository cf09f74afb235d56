// Package audit keeps an append-only trail of every generate exchange: the
// prompt, the raw backend payload and the verdict it was normalized to.
//
// Events are written as JSON lines into size-bounded shard files, optionally
// gzip-compressed.
package audit

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

const (
	DefaultMaxShardSize  = 10 << 20
	DefaultFlushInterval = 5 * time.Second

	shardPattern = "shard_*.jsonl*"
)

// Event is one audited generate call.
type Event struct {
	Time              time.Time               `json:"time"`
	Prompt            string                  `json:"prompt"`
	Tradeoff          float64                 `json:"cp_tradeoff"`
	ComplianceEnabled bool                    `json:"compliance_enabled"`
	Kind              models.ResponseKind     `json:"kind,omitempty"`
	Status            models.ComplianceStatus `json:"status,omitempty"`
	Model             string                  `json:"model,omitempty"`
	Raw               json.RawMessage         `json:"raw,omitempty"`
	Error             string                  `json:"error,omitempty"`
}

type Config struct {
	Dir           string
	MaxShardSize  int64
	Compress      bool
	FlushInterval time.Duration
}

// Log writes events to the current shard, rotating once it reaches
// MaxShardSize.
type Log struct {
	dir           string
	maxShardSize  int64
	compress      bool
	flushInterval time.Duration
	now           func() time.Time

	mu    sync.Mutex
	shard *shardWriter

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type shardWriter struct {
	file       *os.File
	writer     *bufio.Writer
	gzWriter   *gzip.Writer
	size       int64
	path       string
	compressed bool
}

// ShardInfo describes a shard file on disk.
type ShardInfo struct {
	Path       string    `json:"path"`
	ModTime    time.Time `json:"mod_time"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
}

func Open(cfg Config) (*Log, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("audit directory cannot be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	l := &Log{
		dir:           cfg.Dir,
		maxShardSize:  cfg.MaxShardSize,
		compress:      cfg.Compress,
		flushInterval: cfg.FlushInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	if l.maxShardSize <= 0 {
		l.maxShardSize = DefaultMaxShardSize
	}
	if l.flushInterval <= 0 {
		l.flushInterval = DefaultFlushInterval
	}

	if err := l.rotate(); err != nil {
		return nil, fmt.Errorf("failed to create initial shard: %w", err)
	}

	go l.flushLoop()

	return l, nil
}

func (l *Log) Dir() string {
	return l.dir
}

// Record appends e, stamping Time when it is zero.
func (l *Log) Record(e Event) error {
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return l.writeLine(append(data, '\n'))
}

func (l *Log) writeLine(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shard == nil {
		return fmt.Errorf("audit log is closed")
	}

	if l.shard.size >= l.maxShardSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("failed to rotate shard: %w", err)
		}
	}

	n, err := l.shard.writer.Write(line)
	if err != nil {
		return fmt.Errorf("failed to write to shard: %w", err)
	}
	l.shard.size += int64(n)
	return nil
}

// rotate must be called with mu held, or before the log is shared.
func (l *Log) rotate() error {
	if l.shard != nil {
		if err := l.shard.Close(); err != nil {
			return fmt.Errorf("failed to close current shard: %w", err)
		}
		l.shard = nil
	}

	// Microseconds keep names unique and lexically ordered across fast
	// rotations.
	timestamp := l.now().UTC().Format("20060102_150405.000000")
	ext := ".jsonl"
	if l.compress {
		ext = ".jsonl.gz"
	}
	path := filepath.Join(l.dir, fmt.Sprintf("shard_%s%s", timestamp, ext))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	for i := 1; os.IsExist(err) && i < 100; i++ {
		path = filepath.Join(l.dir, fmt.Sprintf("shard_%s_%02d%s", timestamp, i, ext))
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to create shard file: %w", err)
	}

	shard := &shardWriter{
		file:       file,
		path:       path,
		compressed: l.compress,
	}
	if l.compress {
		shard.gzWriter = gzip.NewWriter(file)
		shard.writer = bufio.NewWriterSize(shard.gzWriter, 64*1024)
	} else {
		shard.writer = bufio.NewWriterSize(file, 64*1024)
	}

	l.shard = shard
	return nil
}

func (l *Log) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Flush()
		}
	}
}

// Flush pushes buffered events to disk.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shard == nil {
		return nil
	}
	return l.shard.Flush()
}

// Close flushes and closes the current shard. Record fails afterwards.
func (l *Log) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shard == nil {
		return nil
	}
	err := l.shard.Close()
	l.shard = nil
	return err
}

// Shards lists shard files in dir, oldest first.
func Shards(dir string) ([]ShardInfo, error) {
	files, err := shardPaths(dir)
	if err != nil {
		return nil, err
	}

	shards := make([]ShardInfo, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		shards = append(shards, ShardInfo{
			Path:       file,
			ModTime:    info.ModTime(),
			Size:       info.Size(),
			Compressed: filepath.Ext(file) == ".gz",
		})
	}
	return shards, nil
}

func (s *shardWriter) Flush() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.compressed && s.gzWriter != nil {
		return s.gzWriter.Flush()
	}
	return nil
}

func (s *shardWriter) Close() error {
	if err := s.Flush(); err != nil {
		s.file.Close()
		return err
	}
	if s.compressed && s.gzWriter != nil {
		if err := s.gzWriter.Close(); err != nil {
			s.file.Close()
			return err
		}
	}
	return s.file.Close()
}
