// Package sse encodes and decodes text/event-stream frames.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const ContentType = "text/event-stream"

// Frame is one dispatched event.
type Frame struct {
	Event string
	ID    string
	Data  string
	Retry int
}

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming unsupported")

// Encoder writes frames to an HTTP response.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder prepares w for streaming and writes the stream headers.
func NewEncoder(w http.ResponseWriter) (*Encoder, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Encoder{w: w, flusher: flusher}, nil
}

// Encode writes f and flushes it to the client.
func (e *Encoder) Encode(f Frame) error {
	var b strings.Builder
	if f.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", singleLine(f.ID))
	}
	if f.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", singleLine(f.Event))
	}
	if f.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", f.Retry)
	}
	for _, line := range strings.Split(f.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	b.WriteString("\n")
	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// Comment writes a comment line, used as a heartbeat.
func (e *Encoder) Comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", singleLine(text)); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func singleLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Decoder reads frames from an event stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the next frame with a non-empty data field. It returns
// io.EOF when the stream ends between frames and io.ErrUnexpectedEOF when it
// ends inside one.
func (d *Decoder) Decode() (Frame, error) {
	var (
		f       Frame
		data    []string
		hasData bool
		partial bool
	)
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			if errors.Is(err, io.EOF) {
				if partial {
					return Frame{}, io.ErrUnexpectedEOF
				}
				return Frame{}, io.EOF
			}
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				f.Data = strings.Join(data, "\n")
				return f, nil
			}
			f, data, partial = Frame{}, nil, false
			if err != nil {
				return Frame{}, io.EOF
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		partial = true
		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "event":
			f.Event = value
		case "id":
			f.ID = value
		case "data":
			data = append(data, value)
			hasData = true
		case "retry":
			if n, convErr := strconv.Atoi(value); convErr == nil {
				f.Retry = n
			}
		}
		if err != nil {
			// Final line without a trailing blank line: the frame is incomplete.
			return Frame{}, io.ErrUnexpectedEOF
		}
	}
}
