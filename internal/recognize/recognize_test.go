// Package recognize_test tests the exec-based recognizer boundary.
package recognize_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/recognize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner writes a shell script that stands in for the faster-whisper
// runner binary.
func fakeRunner(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-whisper")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700)
	require.NoError(t, err)

	return path
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "recognize-test.log")
	require.NoError(t, err)

	return log
}

func TestTranscribe_ParsesSegments(t *testing.T) {
	t.Parallel()

	binary := fakeRunner(t, `cat <<'EOF'
{"language":"en","segments":[
  {"start":0.0,"end":1.2,"text":" hello "},
  {"start":1.2,"end":2.0,"text":"world"}
]}
EOF`)

	rec := recognize.New(recognize.Config{
		BinaryPath: binary,
		Model:      "small",
		Device:     "cpu",
	}, testLogger(t))

	segments, err := rec.Transcribe(context.Background(), "audio.wav", "en")
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, " hello ", segments[0].Text)
	assert.InDelta(t, 1.2, segments[0].End, 1e-9)
	assert.Equal(t, "world", segments[1].Text)
}

func TestTranscribe_RunnerFailure(t *testing.T) {
	t.Parallel()

	binary := fakeRunner(t, `echo "model load failed" >&2; exit 3`)

	rec := recognize.New(recognize.Config{
		BinaryPath: binary,
		Model:      "small",
	}, testLogger(t))

	_, err := rec.Transcribe(context.Background(), "audio.wav", "")
	require.ErrorIs(t, err, recognize.ErrRecognition)
	assert.Contains(t, err.Error(), "model load failed")
}

func TestTranscribe_MalformedOutput(t *testing.T) {
	t.Parallel()

	binary := fakeRunner(t, `echo "this is not json"`)

	rec := recognize.New(recognize.Config{
		BinaryPath: binary,
		Model:      "small",
	}, testLogger(t))

	_, err := rec.Transcribe(context.Background(), "audio.wav", "")
	require.ErrorIs(t, err, recognize.ErrRecognition)
}
