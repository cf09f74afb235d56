package audit

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

type shardReader struct {
	file       *os.File
	reader     *bufio.Reader
	gzReader   *gzip.Reader
	compressed bool
}

func openShard(path string) (*shardReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}

	reader := &shardReader{
		file:       file,
		compressed: filepath.Ext(path) == ".gz",
	}

	if reader.compressed {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			if errors.Is(err, io.EOF) {
				// Shard created but nothing flushed yet.
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		reader.gzReader = gzReader
		reader.reader = bufio.NewReader(gzReader)
	} else {
		reader.reader = bufio.NewReader(file)
	}

	return reader, nil
}

// readLine returns the next complete line. A shard still being written may
// end in a partial line or an unterminated gzip stream; both read as EOF.
func (r *shardReader) readLine() ([]byte, error) {
	line, err := r.reader.ReadBytes('\n')
	if err == nil {
		return line, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	return nil, err
}

func (r *shardReader) Close() error {
	if r.compressed && r.gzReader != nil {
		r.gzReader.Close()
	}
	return r.file.Close()
}

// Iterator reads events across all shards in name order, which is
// creation order.
type Iterator struct {
	shards       []string
	currentIndex int
	current      *shardReader
}

func NewIterator(dir string) (*Iterator, error) {
	shards, err := shardPaths(dir)
	if err != nil {
		return nil, err
	}
	return &Iterator{shards: shards, currentIndex: -1}, nil
}

// Next returns io.EOF once every shard is exhausted. Lines that do not
// decode are skipped.
func (it *Iterator) Next() (Event, error) {
	for {
		if it.current != nil {
			line, err := it.current.readLine()
			if err == nil {
				var e Event
				if json.Unmarshal(line, &e) != nil {
					continue
				}
				return e, nil
			}
			if err != io.EOF {
				return Event{}, err
			}
			it.current.Close()
			it.current = nil
		}

		it.currentIndex++
		if it.currentIndex >= len(it.shards) {
			return Event{}, io.EOF
		}

		shard, err := openShard(it.shards[it.currentIndex])
		if err == io.EOF {
			continue
		}
		if err != nil {
			return Event{}, err
		}
		it.current = shard
	}
}

func (it *Iterator) Close() error {
	if it.current != nil {
		return it.current.Close()
	}
	return nil
}

// Filter selects events. Zero fields match everything; Limit keeps the
// most recent matches.
type Filter struct {
	Status    models.ComplianceStatus
	ErrorOnly bool
	Since     time.Time
	Until     time.Time
	Limit     int
}

func (f Filter) match(e Event) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.ErrorOnly && e.Error == "" {
		return false
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	return true
}

// Read collects matching events from dir, oldest first.
func Read(dir string, filter Filter) ([]Event, error) {
	it, err := NewIterator(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer it.Close()

	var events []Event
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		if !filter.match(e) {
			continue
		}
		events = append(events, e)
		if filter.Limit > 0 && len(events) > filter.Limit {
			events = events[1:]
		}
	}
	return events, nil
}

func shardPaths(dir string) ([]string, error) {
	shards, err := filepath.Glob(filepath.Join(dir, shardPattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(shards)
	return shards, nil
}
