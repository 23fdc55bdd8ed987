package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"lexassist-backend/logger"
	"lexassist-backend/metrics"
	"lexassist-backend/models"
	"lexassist-backend/repository"
	"lexassist-backend/storage"
)

var ErrReadOnly = errors.New("law database is read-only")

// LawStore is the persistence the law service drives
type LawStore interface {
	CorpusSource
	List() []models.LawMetadata
	Get(fileKey string) (*models.LawFile, error)
	Stats() models.LawStats
	Compare(fileKey string, data []byte) (*models.VersionComparison, error)
	Add(ctx context.Context, data []byte) (*repository.MutationResult, error)
	Update(ctx context.Context, fileKey string, data []byte, enforceVersion bool) (*repository.MutationResult, error)
	Delete(ctx context.Context, fileKey string, backup bool) (*repository.MutationResult, error)
	Backups(ctx context.Context) ([]storage.Artifact, error)
	OpenBackup(ctx context.Context, name string) (io.ReadCloser, error)
}

// LawService manages the law database
type LawService struct {
	store    LawStore
	log      logger.Logger
	readOnly bool
}

type LawServiceOption func(*LawService)

func LawWithStore(st LawStore) LawServiceOption {
	return func(s *LawService) {
		s.store = st
	}
}

func LawWithLogger(l logger.Logger) LawServiceOption {
	return func(s *LawService) {
		s.log = l
	}
}

// LawReadOnly rejects every mutation with ErrReadOnly
func LawReadOnly(readOnly bool) LawServiceOption {
	return func(s *LawService) {
		s.readOnly = readOnly
	}
}

func NewLawService(opts ...LawServiceOption) *LawService {
	s := &LawService{log: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LawService) List() []models.LawMetadata {
	return s.store.List()
}

func (s *LawService) Get(fileKey string) (*models.LawFile, error) {
	return s.store.Get(fileKey)
}

func (s *LawService) Stats() models.LawStats {
	return s.store.Stats()
}

// Backups lists the copies taken before updates and deletes; reading them is allowed in read-only mode
func (s *LawService) Backups(ctx context.Context) ([]storage.Artifact, error) {
	return s.store.Backups(ctx)
}

func (s *LawService) OpenBackup(ctx context.Context, name string) (io.ReadCloser, error) {
	return s.store.OpenBackup(ctx, name)
}

func (s *LawService) Compare(fileKey string, data []byte) (*models.VersionComparison, error) {
	return s.store.Compare(fileKey, data)
}

func (s *LawService) Add(ctx context.Context, data []byte) (*repository.MutationResult, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	result, err := s.store.Add(ctx, data)
	s.observe("add", "", err)
	return result, err
}

// CreateLawRequest builds a law from individual fields instead of a complete document
type CreateLawRequest struct {
	ActName  string           `json:"act_name"`
	FileKey  string           `json:"file_key"`
	Year     string           `json:"year"`
	Version  string           `json:"version"`
	Source   string           `json:"source"`
	Sections []models.Section `json:"sections"`
}

// Create assembles a law document from req and adds it through the same validation as Add
func (s *LawService) Create(ctx context.Context, req CreateLawRequest) (*repository.MutationResult, error) {
	law := models.NewLawFile(models.NewLawFileParams{
		ActName:  req.ActName,
		FileKey:  req.FileKey,
		Year:     req.Year,
		Sections: req.Sections,
		Version:  req.Version,
		Source:   req.Source,
	}, time.Now())
	data, err := json.Marshal(law)
	if err != nil {
		return nil, fmt.Errorf("failed to encode law: %w", err)
	}
	return s.Add(ctx, data)
}

func (s *LawService) Update(ctx context.Context, fileKey string, data []byte, enforceVersion bool) (*repository.MutationResult, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	result, err := s.store.Update(ctx, fileKey, data, enforceVersion)
	s.observe("update", fileKey, err)
	return result, err
}

func (s *LawService) Delete(ctx context.Context, fileKey string, backup bool) (*repository.MutationResult, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	result, err := s.store.Delete(ctx, fileKey, backup)
	s.observe("delete", fileKey, err)
	return result, err
}

func (s *LawService) observe(op, fileKey string, err error) {
	metrics.ObserveLawMutation(op, err)
	if err != nil {
		s.log.WithError(err).Warn("law "+op+" rejected", map[string]interface{}{"file_key": fileKey})
	}
	metrics.CorpusSections.Set(float64(s.store.Stats().TotalSections))
}
