// Package fs provides a file system-based credential store for the tigerstats client.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/panyam/tigerstats/client"
)

// DefaultPath is the record location used when neither a flag nor the
// environment names one
const DefaultPath = "config.json"

// FSCredentialStore keeps the credential record as a JSON file.
// Token writes rewrite only the auth.access_token and auth.refresh_token
// keys; every other key in the file survives, including ones this package
// does not know about.
type FSCredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewFSCredentialStore creates a store for path. If path is empty, DefaultPath is used.
// The file is not read until Load.
func NewFSCredentialStore(path string) *FSCredentialStore {
	if path == "" {
		path = DefaultPath
	}
	return &FSCredentialStore{path: path}
}

// Path returns the path to the credentials file
func (s *FSCredentialStore) Path() string {
	return s.path
}

// Load reads and decodes the record
func (s *FSCredentialStore) Load(ctx context.Context) (*client.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &client.ConfigError{Source: s.path, Err: err}
	}

	var rec client.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &client.ConfigError{Source: s.path, Err: fmt.Errorf("failed to parse credentials file: %w", err)}
	}
	return &rec, nil
}

// SaveTokens rewrites the token pair in place
func (s *FSCredentialStore) SaveTokens(ctx context.Context, update client.TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	auth, _ := doc["auth"].(map[string]any)
	if auth == nil {
		auth = map[string]any{}
	}
	auth["access_token"] = update.AccessToken
	if update.RefreshToken != "" {
		auth["refresh_token"] = update.RefreshToken
	}
	doc["auth"] = auth

	return s.writeDocument(doc)
}

// Put writes a complete record, creating the file and its directory if needed.
// Unknown keys already in the file are kept.
func (s *FSCredentialStore) Put(ctx context.Context, rec *client.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		var cfgErr *client.ConfigError
		if !errors.As(err, &cfgErr) || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		doc = map[string]any{}
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	for section, value := range fields {
		existing, _ := doc[section].(map[string]any)
		if existing == nil {
			doc[section] = value
			continue
		}
		for k, v := range value.(map[string]any) {
			existing[k] = v
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return s.writeDocument(doc)
}

// readDocument decodes the file generically so unknown keys and exact
// numbers survive a rewrite. Caller must hold s.mu.
func (s *FSCredentialStore) readDocument() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &client.ConfigError{Source: s.path, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, &client.ConfigError{Source: s.path, Err: fmt.Errorf("failed to parse credentials file: %w", err)}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// writeDocument encodes with 4-space indent and no HTML escaping. Caller must hold s.mu.
func (s *FSCredentialStore) writeDocument(doc map[string]any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}
	if err := writeAtomicFile(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// writeAtomicFile writes data to a temp file in the same directory and renames
// it over path. The existing file mode is kept; new files are owner-only.
func writeAtomicFile(path string, data []byte) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

var _ client.CredentialStore = (*FSCredentialStore)(nil)
