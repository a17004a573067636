package shell

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned by a Prompter when the user presses Ctrl-C or
// closes the input.
var ErrAborted = errors.New("input aborted")

// Prompter reads one line of input per call.
type Prompter interface {
	Prompt(label string) (string, error)
	Close() error
}

// LineEditor is a Prompter with line editing and persistent history.
type LineEditor struct {
	state   *liner.State
	history string
}

// NewLineEditor starts line editing on the terminal. History is loaded from
// and saved to historyFile when it is non-empty.
func NewLineEditor(historyFile string) *LineEditor {
	e := &LineEditor{state: liner.NewLiner(), history: historyFile}
	e.state.SetCtrlCAborts(true)
	e.state.SetCompleter(completeMenu)
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = e.state.ReadHistory(f)
			f.Close()
		}
	}
	return e
}

// Prompt implements Prompter.
func (e *LineEditor) Prompt(label string) (string, error) {
	line, err := e.state.Prompt(label)
	if err != nil {
		if err == liner.ErrPromptAborted || err == io.EOF {
			return "", ErrAborted
		}
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		e.state.AppendHistory(line)
	}
	return line, nil
}

// Close saves the history and restores the terminal.
func (e *LineEditor) Close() error {
	if e.history != "" {
		if f, err := os.Create(e.history); err == nil {
			_, _ = e.state.WriteHistory(f)
			f.Close()
		}
	}
	return e.state.Close()
}

func completeMenu(line string) []string {
	words := []string{"add", "edit", "remove", "list", "search", "convert", "quit"}
	var out []string
	for _, w := range words {
		if strings.HasPrefix(w, strings.ToLower(line)) {
			out = append(out, w)
		}
	}
	return out
}
