package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// jsonlFile is a JSON Lines file with serialized writers. Each record is
// written with a single write followed by fsync.
type jsonlFile struct {
	mu   sync.Mutex
	path string
}

func (f *jsonlFile) append(v any) error {
	line, err := encodeLine(v)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// A crash may have left a record without its newline. Terminate it so
	// the new record stays on its own line.
	terminated, err := endsWithNewline(file)
	if err != nil {
		return err
	}
	if !terminated {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := file.Write(line); err != nil {
		return err
	}
	return file.Sync()
}

// rewrite atomically replaces the file with one line per value.
func (f *jsonlFile) rewrite(n int, value func(i int) any) error {
	var buf bytes.Buffer
	for i := range n {
		line, err := encodeLine(value(i))
		if err != nil {
			return err
		}
		buf.Write(line)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return WriteFileAtomic(f.path, buf.Bytes())
}

// encodeLine returns v as one JSON line. HTML characters are kept as is
// since breadcrumbs and Markdown content use ">".
func encodeLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func endsWithNewline(file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// loadJSONL decodes every line of path into a T. A missing file yields no
// records. Blank, truncated and malformed lines are skipped and counted.
func loadJSONL[T any](path string) (records []*T, skipped int, err error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	} else if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	for {
		line, readErr := r.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, 0, readErr
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				skipped++
			} else {
				records = append(records, &v)
			}
		}

		if readErr == io.EOF {
			return records, skipped, nil
		}
	}
}
