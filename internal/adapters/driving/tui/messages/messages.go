// Package messages holds the tea.Msg values passed between the TUI models.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type QuestionSubmitted struct {
	Question string
}

// AnswerFragment is the next piece of a streamed answer.
type AnswerFragment struct {
	Text string
}

// AnswerCompleted ends a streamed answer. Answer is nil when Err is set.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// UploadRequested asks the chat view to ingest files.
type UploadRequested struct {
	Paths []string
}

// IngestCompleted carries the outcome of an upload. Report lists the
// failed files even when Err is set.
type IngestCompleted struct {
	Report *domain.IngestReport
	Err    error
}

type ViewChanged struct {
	View ViewType
}

// ViewType is the screen the App shows.
type ViewType int

const (
	ViewChat ViewType = iota
	ViewHelp
)

var viewNames = [...]string{ViewChat: "chat", ViewHelp: "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

type ErrorOccurred struct {
	Err error
}

type Quit struct{}
