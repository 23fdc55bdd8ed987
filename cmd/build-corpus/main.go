// Command build-corpus converts extracted statute text into law database files.
//
// Each .txt file in the input directory becomes one law. The file name supplies the
// file key, act name and year: "civil_law_act_1956.txt" is the Civil Law Act 1956.
// Laws already in the database are skipped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"lexassist-backend/config"
	"lexassist-backend/logger"
	"lexassist-backend/models"
	"lexassist-backend/repository"
	"lexassist-backend/sectionizer"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func main() {
	inDir := flag.String("in", "./data/text", "directory of extracted .txt files")
	lawsDir := flag.String("laws", "", "law database directory (default: corpus.laws_dir)")
	source := flag.String("source", models.DefaultLawSource, "source recorded in each law")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build-corpus: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build-corpus: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dir := *lawsDir
	if dir == "" {
		dir = cfg.Corpus.LawsDir
	}
	repo, err := repository.NewLawRepository(dir, repository.WithLogger(log))
	if err != nil {
		log.WithError(err).Error("failed to open law database", map[string]interface{}{"dir": dir})
		os.Exit(1)
	}

	files, err := filepath.Glob(filepath.Join(*inDir, "*.txt"))
	if err != nil {
		log.WithError(err).Error("failed to read input directory", map[string]interface{}{"dir": *inDir})
		os.Exit(1)
	}

	ctx := context.Background()
	var added, skipped, failed int
	for _, path := range files {
		fields := map[string]interface{}{"file": filepath.Base(path)}
		law, err := ingest(ctx, repo, path, *source)
		switch {
		case err == nil && law == nil:
			skipped++
			log.Info("already in database, skipping", fields)
		case err != nil:
			failed++
			log.WithError(err).Warn("failed to convert", fields)
		default:
			added++
			fields["file_key"] = law.Metadata.FileKey
			fields["sections"] = law.Metadata.TotalSections
			log.Info("law added", fields)
		}
	}

	log.Info("corpus build finished", map[string]interface{}{
		"added":   added,
		"skipped": skipped,
		"failed":  failed,
	})
	if failed > 0 {
		os.Exit(1)
	}
}

// lawStore is the part of the repository ingest needs
type lawStore interface {
	Get(fileKey string) (*models.LawFile, error)
	Add(ctx context.Context, data []byte) (*repository.MutationResult, error)
}

// ingest adds one text file as a law; it returns nil, nil when the key already exists
func ingest(ctx context.Context, repo lawStore, path, source string) (*models.LawFile, error) {
	act, key, year := describeFile(filepath.Base(path))
	if _, err := repo.Get(key); err == nil {
		return nil, nil
	}

	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	law := models.NewLawFile(models.NewLawFileParams{
		ActName:  act,
		FileKey:  key,
		Year:     year,
		Sections: sectionizer.SplitLaw(string(text), act),
		Source:   source,
	}, time.Now())
	data, err := json.Marshal(law)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	result, err := repo.Add(ctx, data)
	if err != nil {
		return nil, err
	}
	return result.Law, nil
}

var (
	keyUnsafe = regexp.MustCompile(`[^a-z0-9_\-]+`)
	yearToken = regexp.MustCompile(`^\d{4}$`)
	minorWord = map[string]bool{"of": true, "and": true, "the": true, "for": true, "in": true, "on": true}
)

// describeFile derives act name, file key and year from a file name
func describeFile(name string) (act, key, year string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	key = strings.Trim(keyUnsafe.ReplaceAllString(strings.ToLower(base), "_"), "_")

	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	title := cases.Title(language.English)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && minorWord[lower] {
			words[i] = lower
		} else {
			words[i] = title.String(w)
		}
		if yearToken.MatchString(w) {
			year = w
		}
	}
	return strings.Join(words, " "), key, year
}
