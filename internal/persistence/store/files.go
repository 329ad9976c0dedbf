package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const fileExt = ".json.zst"

// Files keeps one zstd-compressed file per key under a directory. Writes go
// through a temp file and rename so a crash never leaves a torn record.
type Files struct {
	dir string

	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func OpenFiles(dir string) (*Files, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty store dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &Files{dir: dir, enc: enc, dec: dec}, nil
}

func (s *Files) path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+fileExt)
}

func (s *Files) Get(key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	b, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("zstd decode %s: %w", key, err)
	}
	return b, true, nil
}

func (s *Files) Put(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path(key), s.enc.EncodeAll(value, nil))
}

func (s *Files) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Files) Keys(prefix string) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Files) Close() error {
	s.dec.Close()
	return s.enc.Close()
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
