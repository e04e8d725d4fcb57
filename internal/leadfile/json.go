package leadfile

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// StreamJSON decodes lead objects from either a JSON array ([{...},{...}])
// or a stream of concatenated objects, one per line. Nested values are kept
// as decoded so webhook-shaped payloads pass through unchanged. Both
// channels are closed when processing completes.
func StreamJSON(ctx context.Context, r io.Reader) (<-chan Record, <-chan error) {
	recCh := make(chan Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		br := bufio.NewReader(r)
		array, err := opensArray(br)
		if err != nil {
			if err != io.EOF {
				errCh <- eris.Wrap(err, "json: read input")
			}
			return
		}

		decoder := json.NewDecoder(br)
		if array {
			if _, err := decoder.Token(); err != nil {
				errCh <- eris.Wrap(err, "json: read opening token")
				return
			}
		}

		for n := 1; ; n++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
			if array && !decoder.More() {
				break
			}

			var payload map[string]any
			if err := decoder.Decode(&payload); err != nil {
				if err == io.EOF && !array {
					return
				}
				errCh <- eris.Wrapf(err, "json: decode record %d", n)
				return
			}
			if len(payload) == 0 {
				continue
			}

			select {
			case recCh <- Record{Line: n, Payload: payload}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return recCh, errCh
}

// opensArray peeks past leading whitespace and reports whether the input
// starts with '['.
func opensArray(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '[', br.UnreadByte()
	}
}
