package backend

import (
	"context"
	"io"
	"sync"
)

// Stream is one live completion relay. It is a finite, non-restartable
// sequence of raw chunks exactly as the backend sent them; SSE framing is
// passed through without reparsing.
type Stream struct {
	ctx         context.Context // request-scoped; classifies read failures
	body        io.ReadCloser
	contentType string
	buf         []byte
	pending     error
	closeOnce   sync.Once
	closeErr    error
}

// ContentType reports the backend's response content type, typically
// text/event-stream.
func (s *Stream) ContentType() string { return s.contentType }

// Recv returns the next chunk as it arrives. io.EOF signals a completed
// stream; any other error means the stream broke mid-flight. Data received
// together with an error is delivered first, the error on the next call.
func (s *Stream) Recv() ([]byte, error) {
	if s.pending != nil {
		return nil, s.pending
	}
	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			switch {
			case err == nil:
			case err == io.EOF:
				s.pending = io.EOF
			default:
				s.pending = classify(s.ctx, "stream read", err)
			}
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if err == nil {
			continue
		}
		if err == io.EOF {
			s.pending = io.EOF
			return nil, io.EOF
		}
		s.pending = classify(s.ctx, "stream read", err)
		return nil, s.pending
	}
}

// Close releases the underlying connection. Safe to call more than once,
// after EOF, and mid-stream.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.body.Close() })
	return s.closeErr
}
