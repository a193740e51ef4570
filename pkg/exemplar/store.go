package exemplar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Synavera-Discorporated/trust-model/pkg/canonicalize"
)

// EnabledEnvVar gates exemplar capture; capture stays off unless it is set
// to a truthy value so normal runs produce no artifacts. DirEnvVar overrides
// the default capture directory.
const (
	EnabledEnvVar = "TRUST_EXEMPLARS"
	DirEnvVar     = "TRUST_EXEMPLARS_DIR"
)

// Enabled reports whether exemplar capture is switched on.
func Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnabledEnvVar))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// CaptureIfEnabled writes the bundle to the environment-selected directory
// and refreshes the index. Returns the written path, or "" when capture is
// off. Capture never alters the evaluation the bundle was built from.
func CaptureIfEnabled(bundle *Bundle) (string, error) {
	if !Enabled() {
		return "", nil
	}
	dir := os.Getenv(DirEnvVar)
	if dir == "" {
		dir = "exemplars"
	}
	store := NewStore(dir)
	path, err := store.Write(bundle)
	if err != nil {
		return "", err
	}
	if err := store.UpdateIndex(); err != nil {
		return "", err
	}
	return path, nil
}

const bundleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "created_utc", "source", "kind", "events", "receipts", "violations", "format_version"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "created_utc": {"type": "string"},
    "source": {
      "type": "object",
      "required": ["test_name"],
      "properties": {
        "test_name": {"type": "string"},
        "profile": {"type": "string"},
        "seed": {"type": "string"},
        "suser_id": {"type": "string"}
      }
    },
    "kind": {"enum": ["trust", "respect", "trust_view"]},
    "events": {"type": "array", "items": {"type": "object"}},
    "receipts": {"type": "array", "items": {"type": "object"}},
    "violations": {
      "type": "object",
      "required": ["labels", "evidence"],
      "properties": {
        "labels": {"type": "array", "items": {"type": "string"}},
        "evidence": {
          "type": "object",
          "additionalProperties": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "notes": {"type": "string"},
    "format_version": {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		const schemaURL = "https://trust-model.schemas.local/exemplar.schema.json"
		if err := c.AddResource(schemaURL, strings.NewReader(bundleSchema)); err != nil {
			schemaErr = fmt.Errorf("exemplar schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Store writes and reads exemplar bundles under one directory. Bundle files
// are canonical JSON so diffs reflect semantic changes only; the README index
// is append-only to preserve the audit trail.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Write serializes a bundle as canonical JSON to <dir>/<id>.json.
func (s *Store) Write(bundle *Bundle) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("exemplar store: %w", err)
	}
	data, err := canonicalize.Canonical(bundle)
	if err != nil {
		return "", fmt.Errorf("exemplar %s: canonicalize: %w", bundle.ID, err)
	}
	path := filepath.Join(s.Dir, bundle.ID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("exemplar %s: write: %w", bundle.ID, err)
	}
	return path, nil
}

// Load reads a bundle, validating it against the bundle schema and the
// supported format range before decoding.
func (s *Store) Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("exemplar load: %w", err)
	}
	return Decode(data)
}

// Decode parses and validates bundle JSON.
func Decode(data []byte) (*Bundle, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("exemplar decode: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("exemplar schema validation failed: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("exemplar decode: %w", err)
	}
	if err := CheckFormat(bundle.FormatVersion); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// List returns the bundle paths in the store, sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("exemplar store: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// UpdateIndex appends newly captured bundles to the store's README index.
// Existing entries are never rewritten.
func (s *Store) UpdateIndex() error {
	paths, err := s.List()
	if err != nil {
		return err
	}
	indexPath := filepath.Join(s.Dir, "README.md")
	existing, err := os.ReadFile(indexPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("exemplar index: %w", err)
	}
	have := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}
	var fresh []string
	for _, path := range paths {
		entry := fmt.Sprintf("- `%s`", filepath.Base(path))
		if !have[entry] {
			fresh = append(fresh, entry)
		}
	}
	if len(existing) == 0 {
		header := "# Exemplars\n\nCaptured invalid-state exemplars. Entries are appended, never rewritten.\n\n"
		body := header + strings.Join(fresh, "\n")
		return os.WriteFile(indexPath, []byte(strings.TrimRight(body, "\n")+"\n"), 0o644)
	}
	if len(fresh) == 0 {
		return nil
	}
	body := strings.TrimRight(string(existing), "\n") + "\n" + strings.Join(fresh, "\n") + "\n"
	return os.WriteFile(indexPath, []byte(body), 0o644)
}
