// Package prompt provides interactive confirmation for comparison runs.
package prompt

import (
	"bufio"
	"io"
	"strings"

	"github.com/tyemirov/perfcomp/internal/utils"
)

const (
	affirmativeShortResponseConstant = "y"
	affirmativeLongResponseConstant  = "yes"
)

// ConfirmationPrompter asks the operator to confirm before a run proceeds.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// IOConfirmationPrompter reads confirmation responses from an io.Reader.
type IOConfirmationPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOConfirmationPrompter constructs a prompter from the provided reader and
// writer. The writer is wrapped so the prompt is flushed before the prompter
// blocks waiting for a response.
func NewIOConfirmationPrompter(input io.Reader, output io.Writer) *IOConfirmationPrompter {
	var promptWriter io.Writer
	if output != nil {
		promptWriter = utils.NewFlushingWriter(output)
	}
	return &IOConfirmationPrompter{reader: bufio.NewReader(input), writer: promptWriter}
}

// Confirm writes the prompt and interprets "y" and "yes" as affirmative.
func (prompter *IOConfirmationPrompter) Confirm(prompt string) (bool, error) {
	if prompter.writer != nil {
		if _, writeError := io.WriteString(prompter.writer, prompt); writeError != nil {
			return false, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return false, readError
	}

	normalizedResponse := strings.TrimSpace(strings.ToLower(response))
	switch normalizedResponse {
	case affirmativeShortResponseConstant, affirmativeLongResponseConstant:
		return true, nil
	default:
		return false, nil
	}
}
