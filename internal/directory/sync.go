package directory

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/quill/internal/checksum"
)

// recordDoc is the YAML shape of one portal record.
type recordDoc struct {
	ID        string         `yaml:"id"`
	Kind      string         `yaml:"kind"`
	Title     string         `yaml:"title"`
	Subtitle  string         `yaml:"subtitle"`
	Data      map[string]any `yaml:"data"`
	UpdatedAt time.Time      `yaml:"updated_at"`
}

// parseRecordFile accepts either a single record document or a file with a
// top-level `records:` list.
func parseRecordFile(data []byte) ([]Row, error) {
	var multi struct {
		Records []recordDoc `yaml:"records"`
	}
	if err := yaml.Unmarshal(data, &multi); err != nil {
		return nil, fmt.Errorf("directory: parse record file: %w", err)
	}
	docs := multi.Records
	if len(docs) == 0 {
		var single recordDoc
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("directory: parse record file: %w", err)
		}
		if single.ID != "" {
			docs = []recordDoc{single}
		}
	}

	out := make([]Row, 0, len(docs))
	for _, d := range docs {
		if d.ID == "" || d.Kind == "" {
			return nil, fmt.Errorf("directory: record missing id or kind")
		}
		blob := "{}"
		if len(d.Data) > 0 {
			b, err := json.Marshal(d.Data)
			if err != nil {
				return nil, fmt.Errorf("directory: encode record data: %w", err)
			}
			blob = string(b)
		}
		out = append(out, Row{
			ID:        d.ID,
			Kind:      d.Kind,
			Title:     d.Title,
			Subtitle:  d.Subtitle,
			Data:      blob,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return out, nil
}

func isRecordFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// listRecordFiles walks the records directory and returns relative paths
// with content checksums.
func listRecordFiles(root string) (map[string]string, error) {
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isRecordFile(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[rel] = checksum.Sum(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directory: list record files: %w", err)
	}
	return out, nil
}

// syncFile parses and upserts one record file (path relative to root).
func syncFile(db *DB, root, rel string) error {
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	recs, err := parseRecordFile(data)
	if err != nil {
		return err
	}
	return db.UpsertSource(rel, checksum.Sum(data), recs)
}

// Sync walks the records directory and brings the index up to date:
//   - new/changed record files are parsed and upserted
//   - files removed from disk drop their records from the index
func Sync(db *DB, root string, logger *slog.Logger) error {
	disk, err := listRecordFiles(root)
	if err != nil {
		return err
	}
	indexed, err := db.AllSources()
	if err != nil {
		return err
	}

	for rel, chk := range disk {
		if indexed[rel] == chk {
			continue
		}
		if err := syncFile(db, root, rel); err != nil {
			logger.Warn("sync: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", rel))
		}
	}

	// Remove stale entries.
	for rel := range indexed {
		if _, ok := disk[rel]; !ok {
			if err := db.DeleteSource(rel); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", rel))
			}
		}
	}

	return nil
}
