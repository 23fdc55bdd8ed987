package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	key, err := s.Save(ctx, KindLawBackup, "employment_act_1955.json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "law-backups/employment_act_1955_"))
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.FileExists(t, s.Location(key))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))

	keys, err := s.List(ctx, KindLawBackup)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	require.NoError(t, s.Delete(ctx, key))
	assert.NoFileExists(t, s.Location(key))
	require.NoError(t, s.Delete(ctx, key), "deleting twice is not an error")

	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocalStorage_ListEmptyKind(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	keys, err := s.List(context.Background(), KindContract)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "store"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0644))

	_, err = s.Open(context.Background(), "../secret.txt")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.Delete(context.Background(), "../secret.txt"), ErrInvalidKey)
	assert.FileExists(t, filepath.Join(dir, "secret.txt"))
}

func TestKeyAndDescribe(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := Key(KindContract, "Employment_Contract_20261015T090000Z_0f8fad5b.txt")
	require.NoError(t, err)
	assert.Equal(t, "contracts/Employment_Contract_20261015T090000Z_0f8fad5b.txt", key)

	for _, bad := range []string{"", "a/b.txt", `a\b.txt`, "..", "x..txt"} {
		_, err := Key(KindContract, bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}

	artifacts := Describe(s, []string{key})
	require.Len(t, artifacts, 1)
	assert.Equal(t, "Employment_Contract_20261015T090000Z_0f8fad5b.txt", artifacts[0].Name)
	assert.Equal(t, key, artifacts[0].Key)
	assert.Equal(t, s.Location(key), artifacts[0].Location)
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(artifacts[0].Name))
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("MYT", 8*3600))

	assert.Equal(t, "contracts/Employment_Contract_20260303T210607Z_0f8fad5b.txt",
		objectKey(KindContract, "Employment Contract.txt", now, id))
	assert.Equal(t, "contracts/a_b_20260303T210607Z_0f8fad5b",
		objectKey(KindContract, "a/b", now, id))
	assert.Equal(t, "law-backups/artifact_20260303T210607Z_0f8fad5b.json",
		objectKey(KindLawBackup, ".json", now, id))
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(context.Background(), Config{Type: TypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(context.Background(), Config{Type: TypeS3})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}
