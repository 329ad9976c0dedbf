package store

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	files, err := OpenFiles(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("OpenFiles: %v", err)
	}
	sq, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(files)
		_ = Close(sq)
	})
	return map[string]Store{
		KindMemory: NewMemory(),
		KindFiles:  files,
		KindSQLite: sq,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get("save:1"); err != nil || ok {
				t.Fatalf("missing key: ok=%v err=%v", ok, err)
			}
			want := []byte(`{"meta":{"save_slot":1}}`)
			if err := s.Put("save:1", want); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put("save:2", []byte("{}")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := s.Put("other", []byte("x")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok, err := s.Get("save:1")
			if err != nil || !ok || !bytes.Equal(got, want) {
				t.Fatalf("Get: %q ok=%v err=%v", got, ok, err)
			}

			keys, err := s.Keys("save:")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if !reflect.DeepEqual(keys, []string{"save:1", "save:2"}) {
				t.Fatalf("keys=%v", keys)
			}

			if err := s.Put("save:1", []byte("{}")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _, _ := s.Get("save:1"); string(got) != "{}" {
				t.Fatalf("overwrite not visible: %q", got)
			}

			if err := s.Delete("save:1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete("save:1"); err != nil {
				t.Fatalf("Delete twice: %v", err)
			}
			if _, ok, _ := s.Get("save:1"); ok {
				t.Fatalf("deleted key still present")
			}
			if err := s.Put("", nil); err == nil {
				t.Fatalf("expected error for empty key")
			}
		})
	}
}

func TestFiles_CompressedOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFiles(dir)
	if err != nil {
		t.Fatalf("OpenFiles: %v", err)
	}
	defer s.Close()
	payload := bytes.Repeat([]byte(`"dialogue line",`), 500)
	if err := s.Put("save:3", payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, "save%3A3.json.zst"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size() >= int64(len(payload)) {
		t.Fatalf("file not compressed: %d >= %d", fi.Size(), len(payload))
	}
	if _, err := os.Stat(filepath.Join(dir, "save%3A3.json.zst.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	if _, err := Open("redis", ""); err == nil {
		t.Fatalf("expected error")
	}
	s, err := Open("", "")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("got %T", s)
	}
}
