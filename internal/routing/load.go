package routing

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-router/pkg/notion"
)

// Source describes where a loaded table came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceNotion   Source = "notion"
	SourceDefaults Source = "defaults"
)

// Options configures Load. Notion takes precedence over File when both
// are set and the Notion client is non-nil.
type Options struct {
	File     string
	NotionDB string
	Notion   notion.Client
}

// Load returns the routing table and its source. It never fails: a missing,
// unreadable or malformed source is logged and the built-in defaults are used.
func Load(ctx context.Context, opts Options) (Table, Source) {
	log := zap.L().With(zap.String("component", "routing"))

	if opts.Notion != nil && opts.NotionDB != "" {
		t, err := LoadFromNotion(ctx, opts.Notion, opts.NotionDB)
		if err == nil {
			return t, SourceNotion
		}
		log.Warn("routing: notion table unavailable", zap.String("db", opts.NotionDB), zap.Error(err))
	}

	if opts.File != "" {
		t, err := LoadFile(opts.File)
		if err == nil {
			return t, SourceFile
		}
		log.Warn("routing: file table unavailable, using defaults", zap.String("path", opts.File), zap.Error(err))
	}

	return Defaults(), SourceDefaults
}

// LoadFile reads a flat country-to-owner mapping. JSON is accepted because it
// is valid YAML.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "routing: read %s", path)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "routing: parse %s", path)
	}

	t := normalize(raw)
	if len(t) == 0 {
		return nil, eris.Errorf("routing: %s has no entries", path)
	}
	return t, nil
}
