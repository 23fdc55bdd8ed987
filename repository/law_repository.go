// Package repository owns the law database: one JSON file per act in a directory,
// mirrored by an in-memory index that readers see as immutable snapshots.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"lexassist-backend/logger"
	"lexassist-backend/models"
	"lexassist-backend/storage"
)

var (
	ErrLawNotFound        = errors.New("law not found")
	ErrDuplicateFileKey   = errors.New("a law with this file key already exists")
	ErrVersionNotNewer    = errors.New("new version must be greater than the stored version")
	ErrFileKeyMismatch    = errors.New("file_key in the document does not match the law being updated")
	ErrBackupNotAvailable = errors.New("backup storage is not configured")
)

// MutationResult reports where a backup of the previous file went, if one was taken
type MutationResult struct {
	Law            *models.LawFile           `json:"law,omitempty"`
	Comparison     *models.VersionComparison `json:"comparison,omitempty"`
	BackupKey      string                    `json:"backup_key,omitempty"`
	BackupLocation string                    `json:"backup_location,omitempty"`
}

type lawEntry struct {
	path string
	law  *models.LawFile
}

// LawRepository handles the law files under one directory
type LawRepository struct {
	dir       string
	backups   storage.Storage
	log       logger.Logger
	validator *Validator

	mu       sync.RWMutex
	laws     map[string]*lawEntry
	snapshot *models.Corpus
}

type LawRepositoryOption func(*LawRepository)

func WithBackupStorage(s storage.Storage) LawRepositoryOption {
	return func(r *LawRepository) {
		r.backups = s
	}
}

func WithLogger(l logger.Logger) LawRepositoryOption {
	return func(r *LawRepository) {
		r.log = l
	}
}

func WithValidator(v *Validator) LawRepositoryOption {
	return func(r *LawRepository) {
		r.validator = v
	}
}

// NewLawRepository creates dir if needed and loads every law file in it
func NewLawRepository(dir string, opts ...LawRepositoryOption) (*LawRepository, error) {
	r := &LawRepository{
		dir:  dir,
		log:  logger.NewNoOpLogger(),
		laws: make(map[string]*lawEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		v, err := NewValidator(time.Now)
		if err != nil {
			return nil, err
		}
		r.validator = v
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create laws directory: %w", err)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rereads the directory. Files that fail validation are logged and skipped.
func (r *LawRepository) Reload() error {
	matches, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list law files: %w", err)
	}
	sort.Strings(matches)

	laws := make(map[string]*lawEntry, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.Warn("skipping unreadable law file", map[string]interface{}{"path": path, "error": err.Error()})
			continue
		}
		law, err := r.validator.Parse(data)
		if err != nil {
			r.log.Warn("skipping invalid law file", map[string]interface{}{"path": path, "error": err.Error()})
			continue
		}
		if prev, dup := laws[law.Metadata.FileKey]; dup {
			r.log.Warn("skipping law file with duplicate file_key", map[string]interface{}{
				"path": path, "file_key": law.Metadata.FileKey, "kept": prev.path,
			})
			continue
		}
		laws[law.Metadata.FileKey] = &lawEntry{path: path, law: law}
	}

	r.mu.Lock()
	r.laws = laws
	r.rebuildSnapshotLocked()
	r.mu.Unlock()

	r.log.Info("law corpus loaded", map[string]interface{}{"dir": r.dir, "laws": len(laws)})
	return nil
}

// rebuildSnapshotLocked orders laws by file_key so retrieval ties are reproducible
func (r *LawRepository) rebuildSnapshotLocked() {
	keys := make([]string, 0, len(r.laws))
	for k := range r.laws {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	corpus := &models.Corpus{Laws: make([]models.Law, 0, len(keys))}
	for _, k := range keys {
		corpus.Laws = append(corpus.Laws, r.laws[k].law.Law())
	}
	r.snapshot = corpus
}

// Corpus returns the current snapshot. The same pointer is returned until the next write.
func (r *LawRepository) Corpus() *models.Corpus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// List returns the metadata of every law ordered by file_key
func (r *LawRepository) List() []models.LawMetadata {
	corpus := r.Corpus()
	out := make([]models.LawMetadata, 0, len(corpus.Laws))
	for _, law := range corpus.Laws {
		out = append(out, law.LawMetadata)
	}
	return out
}

// Get returns a copy of the stored law file
func (r *LawRepository) Get(fileKey string) (*models.LawFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.laws[fileKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLawNotFound, fileKey)
	}
	return copyLawFile(entry.law), nil
}

// Stats summarizes the database
func (r *LawRepository) Stats() models.LawStats {
	corpus := r.Corpus()
	stats := models.LawStats{TotalLaws: len(corpus.Laws)}
	for _, law := range corpus.Laws {
		stats.TotalSections += len(law.Sections)
		if law.Year == "" {
			continue
		}
		if stats.OldestYear == "" || law.Year < stats.OldestYear {
			stats.OldestYear = law.Year
		}
		if law.Year > stats.NewestYear {
			stats.NewestYear = law.Year
		}
	}
	return stats
}

// Validate parses data without touching the database
func (r *LawRepository) Validate(data []byte) (*models.LawFile, error) {
	return r.validator.Parse(data)
}

// Compare diffs a candidate document against the stored law
func (r *LawRepository) Compare(fileKey string, data []byte) (*models.VersionComparison, error) {
	current, err := r.Get(fileKey)
	if err != nil {
		return nil, err
	}
	candidate, err := r.validator.Parse(data)
	if err != nil {
		return nil, err
	}
	return compareLaws(current, candidate), nil
}

// Add validates data and writes it as a new law file
func (r *LawRepository) Add(ctx context.Context, data []byte) (*MutationResult, error) {
	law, err := r.validator.Parse(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := law.Metadata.FileKey
	path := filepath.Join(r.dir, key+".json")
	if _, exists := r.laws[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFileKey, key)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFileKey, key)
	}

	if err := writeLawFile(path, law); err != nil {
		return nil, err
	}
	r.laws[key] = &lawEntry{path: path, law: law}
	r.rebuildSnapshotLocked()

	r.log.Info("law added", map[string]interface{}{"file_key": key, "sections": law.Metadata.TotalSections})
	return &MutationResult{Law: copyLawFile(law)}, nil
}

// Update replaces a law. With enforceVersion the new version must be strictly greater.
// The previous file is copied to backup storage first when one is configured.
func (r *LawRepository) Update(ctx context.Context, fileKey string, data []byte, enforceVersion bool) (*MutationResult, error) {
	law, err := r.validator.Parse(data)
	if err != nil {
		return nil, err
	}
	if law.Metadata.FileKey != fileKey {
		return nil, fmt.Errorf("%w: %q != %q", ErrFileKeyMismatch, law.Metadata.FileKey, fileKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.laws[fileKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLawNotFound, fileKey)
	}
	if enforceVersion {
		newer, err := isNewerVersion(entry.law.Metadata.Version, law.Metadata.Version)
		if err != nil {
			return nil, &ValidationError{Problems: []string{err.Error()}}
		}
		if !newer {
			return nil, fmt.Errorf("%w: %s is not newer than %s", ErrVersionNotNewer, law.Metadata.Version, entry.law.Metadata.Version)
		}
	}

	result := &MutationResult{Comparison: compareLaws(entry.law, law)}
	if r.backups != nil {
		key, err := r.backupLocked(ctx, entry)
		if err != nil {
			return nil, err
		}
		result.BackupKey = key
		result.BackupLocation = r.backups.Location(key)
	}

	if err := writeLawFile(entry.path, law); err != nil {
		return nil, err
	}
	r.laws[fileKey] = &lawEntry{path: entry.path, law: law}
	r.rebuildSnapshotLocked()

	result.Law = copyLawFile(law)
	r.log.Info("law updated", map[string]interface{}{
		"file_key": fileKey, "version": law.Metadata.Version, "backup": result.BackupLocation,
	})
	return result, nil
}

// Delete removes a law file. With backup the file is copied to backup storage first
// and nothing is deleted if that copy fails.
func (r *LawRepository) Delete(ctx context.Context, fileKey string, backup bool) (*MutationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.laws[fileKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLawNotFound, fileKey)
	}

	result := &MutationResult{}
	if backup {
		if r.backups == nil {
			return nil, ErrBackupNotAvailable
		}
		key, err := r.backupLocked(ctx, entry)
		if err != nil {
			return nil, err
		}
		result.BackupKey = key
		result.BackupLocation = r.backups.Location(key)
	}

	if err := os.Remove(entry.path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to delete law file: %w", err)
	}
	delete(r.laws, fileKey)
	r.rebuildSnapshotLocked()

	r.log.Info("law deleted", map[string]interface{}{"file_key": fileKey, "backup": result.BackupLocation})
	return result, nil
}

// Backups lists the law backups taken so far, oldest first
func (r *LawRepository) Backups(ctx context.Context) ([]storage.Artifact, error) {
	if r.backups == nil {
		return nil, ErrBackupNotAvailable
	}
	keys, err := r.backups.List(ctx, storage.KindLawBackup)
	if err != nil {
		return nil, fmt.Errorf("failed to list law backups: %w", err)
	}
	return storage.Describe(r.backups, keys), nil
}

// OpenBackup streams one backup by the name Backups reported
func (r *LawRepository) OpenBackup(ctx context.Context, name string) (io.ReadCloser, error) {
	if r.backups == nil {
		return nil, ErrBackupNotAvailable
	}
	key, err := storage.Key(storage.KindLawBackup, name)
	if err != nil {
		return nil, err
	}
	return r.backups.Open(ctx, key)
}

// backupLocked copies the on-disk bytes so the backup matches what was actually stored
func (r *LawRepository) backupLocked(ctx context.Context, entry *lawEntry) (string, error) {
	data, err := os.ReadFile(entry.path)
	if err != nil {
		return "", fmt.Errorf("failed to read law file for backup: %w", err)
	}
	name := entry.law.Metadata.FileKey + "_backup.json"
	key, err := r.backups.Save(ctx, storage.KindLawBackup, name, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to back up law %s: %w", entry.law.Metadata.FileKey, err)
	}
	return key, nil
}

// writeLawFile writes to a temp file in the same directory and renames it into place
func writeLawFile(path string, law *models.LawFile) error {
	data, err := json.MarshalIndent(law, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode law: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".law-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write law file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync law file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close law file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace law file: %w", err)
	}
	return nil
}

func copyLawFile(l *models.LawFile) *models.LawFile {
	cp := *l
	cp.Sections = append([]models.Section(nil), l.Sections...)
	if cp.Sections == nil {
		cp.Sections = []models.Section{}
	}
	return &cp
}
