package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileWriter rewrites a JSON file under the public directory. Readers see
// either the previous or the new file, never a partial one.
type JSONFileWriter struct {
	dir string
}

func NewJSONFileWriter(dir string) *JSONFileWriter {
	return &JSONFileWriter{dir: dir}
}

func (w *JSONFileWriter) Publish(name string, v any) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", w.dir, err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", " ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(w.dir, name))
}
