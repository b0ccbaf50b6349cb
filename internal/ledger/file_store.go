package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"onboarding-bot/internal/common/validation"
)

// FileStore keeps the ledger as one indented JSON object on disk,
// {"<memberId>": true, ...}, rewritten whole on every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Load(_ context.Context) (map[string]bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	result, err := validation.ValidateDocument(validation.WelcomeLedgerSchema, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("invalid ledger %s: %s", s.path, result.Error())
	}

	members := make(map[string]bool)
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return members, nil
}

func (s *FileStore) Save(_ context.Context, members map[string]bool) error {
	data, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
