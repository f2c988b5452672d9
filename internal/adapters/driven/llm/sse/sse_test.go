package sse

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, stream string) []Event {
	t.Helper()
	var events []Event
	err := Read(strings.NewReader(stream), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestRead(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []Event
	}{
		{
			name:   "unnamed events",
			stream: "data: one\n\ndata: two\n\n",
			want:   []Event{{Data: "one"}, {Data: "two"}},
		},
		{
			name:   "named event",
			stream: "event: content_block_delta\ndata: {\"x\":1}\n\n",
			want:   []Event{{Name: "content_block_delta", Data: `{"x":1}`}},
		},
		{
			name:   "multi-line data",
			stream: "data: a\ndata: b\n\n",
			want:   []Event{{Data: "a\nb"}},
		},
		{
			name:   "comments and unknown fields ignored",
			stream: ": keep-alive\nid: 7\ndata: x\n\n",
			want:   []Event{{Data: "x"}},
		},
		{
			name:   "no space after colon",
			stream: "data:tight\n\n",
			want:   []Event{{Data: "tight"}},
		},
		{
			name:   "trailing event without blank line",
			stream: "data: last",
			want:   []Event{{Data: "last"}},
		},
		{
			name:   "event without data is dropped",
			stream: "event: ping\n\ndata: real\n\n",
			want:   []Event{{Data: "real"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, tt.stream))
		})
	}
}

func TestRead_Stop(t *testing.T) {
	var seen []string
	err := Read(strings.NewReader("data: a\n\ndata: [DONE]\n\ndata: late\n\n"), func(ev Event) error {
		if ev.Data == "[DONE]" {
			return ErrStop
		}
		seen = append(seen, ev.Data)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)
}

func TestRead_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	err := Read(strings.NewReader("data: a\n\ndata: b\n\n"), func(Event) error { return boom })
	assert.ErrorIs(t, err, boom)
}
