// Package filestore keeps the distribution ledger in a JSON file of {"<distributionId>": <completedAt>}.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/screwyprof/distributor/ledger"
	"github.com/screwyprof/distributor/pkg/atomicfile"
)

var ErrCorruptLedger = errors.New("corrupt ledger file")

const filePerm = 0o600

// Store implements ledger.Storage on a local file
type Store struct {
	path string
}

// New creates a file-backed store. The file is created on the first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the ledger file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the mapping; a missing file is an empty ledger
func (s *Store) Load(_ context.Context) (ledger.Entries, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.Entries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptLedger, s.path, err)
	}

	entries := make(ledger.Entries, len(raw))
	for key, completedAt := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: distribution id %q is not an integer", ErrCorruptLedger, s.path, key)
		}
		entries[id] = completedAt
	}
	return entries, nil
}

// Save atomically replaces the file with the full mapping
func (s *Store) Save(_ context.Context, entries ledger.Entries) error {
	return atomicfile.WriteFile(s.path, filePerm, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRaw(entries))
	})
}

// toRaw stringifies keys; encoding/json sorts map keys so the file is stable
func toRaw(entries ledger.Entries) map[string]int64 {
	raw := make(map[string]int64, len(entries))
	for id, completedAt := range entries {
		raw[strconv.FormatInt(id, 10)] = completedAt
	}
	return raw
}
