package prompt_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/prompt"
)

type failingReader struct {
	err error
}

func (reader failingReader) Read(target []byte) (int, error) {
	return 0, reader.err
}

type recordingWriter struct {
	buffer bytes.Buffer
	err    error
	writes int
}

func (writer *recordingWriter) Write(data []byte) (int, error) {
	writer.writes++
	if writer.err != nil {
		return 0, writer.err
	}
	return writer.buffer.Write(data)
}

const (
	promptMessageConstant = "Proceed with comparison? "
)

func TestIOConfirmationPrompterConfirm(testInstance *testing.T) {
	testCases := []struct {
		name             string
		reader           io.Reader
		writer           *recordingWriter
		expectedOutcome  bool
		expectedError    error
		expectPromptEcho bool
	}{
		{
			name:             "decline_response",
			reader:           strings.NewReader("no\n"),
			writer:           &recordingWriter{},
			expectPromptEcho: true,
		},
		{
			name:             "affirmative_short_response",
			reader:           strings.NewReader("y\n"),
			writer:           &recordingWriter{},
			expectedOutcome:  true,
			expectPromptEcho: true,
		},
		{
			name:             "affirmative_long_uppercase",
			reader:           strings.NewReader("YES\n"),
			writer:           &recordingWriter{},
			expectedOutcome:  true,
			expectPromptEcho: true,
		},
		{
			name:             "empty_response_declines",
			reader:           strings.NewReader("\n"),
			writer:           &recordingWriter{},
			expectPromptEcho: true,
		},
		{
			name:          "read_error",
			reader:        failingReader{err: errors.New("read failure")},
			writer:        &recordingWriter{},
			expectedError: errors.New("read failure"),
		},
		{
			name:          "write_error",
			reader:        strings.NewReader("y\n"),
			writer:        &recordingWriter{err: errors.New("write failure")},
			expectedError: errors.New("write failure"),
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testingInstance *testing.T) {
			prompter := prompt.NewIOConfirmationPrompter(testCase.reader, testCase.writer)
			confirmed, confirmError := prompter.Confirm(promptMessageConstant)

			if testCase.expectedError != nil {
				require.Error(testingInstance, confirmError)
				require.ErrorContains(testingInstance, confirmError, testCase.expectedError.Error())
				return
			}

			require.NoError(testingInstance, confirmError)
			require.Equal(testingInstance, testCase.expectedOutcome, confirmed)

			if testCase.expectPromptEcho {
				require.Equal(testingInstance, promptMessageConstant, testCase.writer.buffer.String())
				require.Equal(testingInstance, 1, testCase.writer.writes)
			}
		})
	}
}
