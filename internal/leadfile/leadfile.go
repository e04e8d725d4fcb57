// Package leadfile reads batches of lead payloads from CSV, TSV, XLSX and
// JSON files. Every record becomes a payload map keyed by the normalized
// column header, ready for intake.
package leadfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one lead payload and its position in the source file.
type Record struct {
	Line    int
	Payload map[string]any
}

// Stream opens path and streams its records. The format is chosen by file
// extension. Both channels are closed when processing completes.
func Stream(ctx context.Context, path string) (<-chan Record, <-chan error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return StreamXLSX(ctx, path, XLSXOptions{})
	}

	f, err := os.Open(path)
	if err != nil {
		return failed(eris.Wrapf(err, "leadfile: open %s", path))
	}

	var recCh <-chan Record
	var errCh <-chan error
	switch ext {
	case ".csv":
		recCh, errCh = StreamCSV(ctx, f, CSVOptions{})
	case ".tsv":
		recCh, errCh = StreamCSV(ctx, f, CSVOptions{Delimiter: '\t'})
	case ".json", ".jsonl", ".ndjson":
		recCh, errCh = StreamJSON(ctx, f)
	default:
		_ = f.Close()
		return failed(eris.Errorf("leadfile: unsupported file type %q", ext))
	}
	return closeAfter(f, recCh, errCh)
}

// Read collects up to limit records from path. A limit of zero reads all.
func Read(ctx context.Context, path string, limit int) ([]Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recCh, errCh := Stream(ctx, path)
	var out []Record
	for rec := range recCh {
		if limit > 0 && len(out) == limit {
			cancel()
			continue
		}
		out = append(out, rec)
	}
	for err := range errCh {
		if err != nil && !(limit > 0 && len(out) == limit) {
			return out, err
		}
	}
	return out, nil
}

// HeaderKey normalizes a column header into a payload key: "First Name"
// becomes "first_name".
func HeaderKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
}

// toPayload zips a header row with a data row. Blank cells and unnamed
// columns are dropped; a row with nothing left yields nil.
func toPayload(header, row []string) map[string]any {
	payload := make(map[string]any, len(header))
	for i, cell := range row {
		if i >= len(header) || header[i] == "" {
			continue
		}
		if v := strings.TrimSpace(cell); v != "" {
			payload[header[i]] = v
		}
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}

func headerKeys(row []string) []string {
	keys := make([]string, len(row))
	for i, h := range row {
		keys[i] = HeaderKey(h)
	}
	return keys
}

func failed(err error) (<-chan Record, <-chan error) {
	recCh := make(chan Record)
	errCh := make(chan error, 1)
	errCh <- err
	close(recCh)
	close(errCh)
	return recCh, errCh
}

type closer interface{ Close() error }

// closeAfter closes c once the producer has finished.
func closeAfter(c closer, in <-chan Record, inErr <-chan error) (<-chan Record, <-chan error) {
	out := make(chan Record)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer func() { _ = c.Close() }()
		func() {
			defer close(out)
			for rec := range in {
				out <- rec
			}
		}()
		for err := range inErr {
			if err != nil {
				errCh <- err
			}
		}
	}()
	return out, errCh
}
