package utils_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/perfcomp/internal/utils"
)

const (
	testFlushPayloadConstant      = "data"
	testFlushErrorMessageConstant = "flush failed"
)

type recordingFlushWriter struct {
	buffer     bytes.Buffer
	flushError error
	flushCount int
}

func (writer *recordingFlushWriter) Write(data []byte) (int, error) {
	return writer.buffer.Write(data)
}

func (writer *recordingFlushWriter) Flush() error {
	writer.flushCount++
	return writer.flushError
}

func TestFlushingWriterFlushesAfterEveryWrite(testInstance *testing.T) {
	flushWriter := &recordingFlushWriter{}
	writer := utils.NewFlushingWriter(flushWriter)

	writtenBytes, writeError := writer.Write([]byte(testFlushPayloadConstant))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, len(testFlushPayloadConstant), writtenBytes)
	require.Equal(testInstance, testFlushPayloadConstant, flushWriter.buffer.String())
	require.Equal(testInstance, 1, flushWriter.flushCount)
}

func TestFlushingWriterPropagatesFlushError(testInstance *testing.T) {
	flushWriter := &recordingFlushWriter{flushError: errors.New(testFlushErrorMessageConstant)}
	writer := utils.NewFlushingWriter(flushWriter)

	_, writeError := writer.Write([]byte(testFlushPayloadConstant))
	require.ErrorContains(testInstance, writeError, testFlushErrorMessageConstant)
	require.Equal(testInstance, 1, flushWriter.flushCount)
}

func TestFlushingWriterPassesThroughPlainWriters(testInstance *testing.T) {
	var plainBuffer bytes.Buffer
	writer := utils.NewFlushingWriter(&plainBuffer)

	_, writeError := writer.Write([]byte(testFlushPayloadConstant))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, testFlushPayloadConstant, plainBuffer.String())
}
