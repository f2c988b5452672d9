// Package sse reads server-sent event streams as produced by the OpenAI and
// Anthropic streaming APIs.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// maxLineSize bounds a single line of the stream.
const maxLineSize = 1024 * 1024

// ErrStop may be returned by a handler to end Read early without error.
var ErrStop = errors.New("sse: stop")

// Event is one dispatched server-sent event.
type Event struct {
	// Name is the event field, empty for unnamed events.
	Name string
	// Data is the data field. Multiple data lines are joined with "\n".
	Data string
}

// Read parses events from r and hands each to fn in order.
// Comment lines and unknown fields are ignored. Read returns when r is
// exhausted, when fn returns ErrStop (reported as nil), or with the first
// other error from fn or r.
func Read(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		name    string
		data    bytes.Buffer
		hasData bool
	)
	dispatch := func() error {
		if !hasData {
			name = ""
			return nil
		}
		ev := Event{Name: name, Data: data.String()}
		name, hasData = "", false
		data.Reset()
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			if err := dispatch(); err != nil {
				return stopped(err)
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "event":
			name = string(value)
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return stopped(dispatch())
}

func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
