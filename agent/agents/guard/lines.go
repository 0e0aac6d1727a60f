package guard

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Drift-Guard/agent/contract"
)

const maxLineBytes = 1 << 20

// LineError is written in place of a result when a line cannot be processed.
type LineError struct {
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error"`
}

// ServeLines reads one JSON TurnInput per line from r and writes one JSON
// TurnResult or LineError per line to w, in input order. A failed turn does
// not stop the loop. Cancelling ctx returns promptly even while r blocks.
func (g *Guard) ServeLines(ctx context.Context, r io.Reader, w io.Writer) error {
	lines, scanErr := scanLines(ctx, r)
	enc := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var line []byte
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = l
		}
		if len(line) == 0 {
			continue
		}

		var in contractx.TurnInput
		if err := json.Unmarshal(line, &in); err != nil {
			if err := enc.Encode(LineError{Error: "decode turn: " + err.Error()}); err != nil {
				return err
			}
			continue
		}

		res, err := g.HandleTurn(ctx, in)
		if err != nil {
			log.Error().Err(err).Str("session_id", in.SessionID).Msg("turn failed")
			if err := enc.Encode(LineError{SessionID: in.SessionID, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
}

// scanLines feeds lines from r until EOF, a read error or ctx is done. The
// final error is sent before lines is closed. A reader blocked in Read keeps
// its goroutine until Read returns.
func scanLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}
