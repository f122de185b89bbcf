// Package localconf serializes a declared nested mapping into the agent's
// local.conf file. The write is a full overwrite with no merging: the file
// on disk must match the declaration exactly.
package localconf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Encode renders a configuration mapping as canonical JSON: two-space
// indentation, object keys sorted (encoding/json always sorts map keys), and
// a trailing newline. Canonical output makes the on-disk comparison a plain
// byte comparison and keeps repeated serialization byte-identical.
func Encode(config map[string]interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode local config: %w", err)
	}
	return append(data, '\n'), nil
}

// Write serializes the mapping to path if the resulting bytes differ from
// what is already on disk. It returns true when the file was replaced, in
// which case the agent needs a restart to pick up the change.
//
// A nil mapping means no local configuration was declared: the file is left
// untouched and Write reports no change.
func Write(path string, config map[string]interface{}) (bool, error) {
	if config == nil {
		return false, nil
	}

	data, err := Encode(config)
	if err != nil {
		return false, err
	}

	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := writeAtomic(path, data); err != nil {
		return false, err
	}

	return true, nil
}

// writeAtomic writes data through a temp file in the target directory and
// renames it into place, so the agent never observes a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
