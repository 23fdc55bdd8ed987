// Package storage keeps generated artifacts: law backups taken before an update or
// delete, and drafted contracts. Objects live on the local filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidKey       = errors.New("invalid artifact key")
)

// Kind groups artifacts under a common prefix
type Kind string

const (
	KindLawBackup Kind = "law-backups"
	KindContract  Kind = "contracts"
)

// Storage stores artifacts by key
type Storage interface {
	// Save writes data under a new unique key derived from kind and name and returns the key
	Save(ctx context.Context, kind Kind, name string, data io.Reader) (string, error)

	// Open retrieves an artifact by key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an artifact; a missing key is not an error
	Delete(ctx context.Context, key string) error

	// List returns the keys stored under kind, oldest first
	List(ctx context.Context, kind Kind) ([]string, error)

	// Location renders a key as something a user can find (file path or s3:// URI)
	Location(key string) string
}

// Type selects the storage backend
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds backend settings
type Config struct {
	Type         Type   `mapstructure:"type"`
	LocalPath    string `mapstructure:"local_path"`
	S3Bucket     string `mapstructure:"s3_bucket"`
	S3Region     string `mapstructure:"s3_region"`
	S3Prefix     string `mapstructure:"s3_prefix"`
	AWSAccessKey string `mapstructure:"aws_access_key"`
	AWSSecretKey string `mapstructure:"aws_secret_key"`
}

// New creates the backend named by cfg.Type
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		if cfg.LocalPath == "" {
			return nil, errors.New("local storage path is required")
		}
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 bucket is required for s3 storage")
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Artifact describes a stored object for listing
type Artifact struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Location string `json:"location"`
}

// Describe turns keys returned by List into artifacts
func Describe(st Storage, keys []string) []Artifact {
	out := make([]Artifact, 0, len(keys))
	for _, k := range keys {
		out = append(out, Artifact{Name: Name(k), Key: k, Location: st.Location(k)})
	}
	return out
}

// Key rebuilds the key of an artifact of kind from the name Describe reported
func Key(kind Kind, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	return string(kind) + "/" + name, nil
}

// Name is the last element of key
func Name(key string) string {
	return path.Base(key)
}

// objectKey builds "<kind>/<name>_<utc timestamp>_<short id><ext>".
// The timestamp sorts lexically so List can order by key.
func objectKey(kind Kind, name string, now time.Time, id uuid.UUID) string {
	ext := filepath.Ext(name)
	base := sanitize(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "artifact"
	}
	return path.Join(string(kind), fmt.Sprintf("%s_%s_%s%s",
		base, now.UTC().Format("20060102T150405Z"), id.String()[:8], ext))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

// validKey rejects keys escaping the storage root
func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") || path.IsAbs(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// ContentType guesses the MIME type of an artifact from its extension
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
