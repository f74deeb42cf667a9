package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/dygy/hum-grep/internal/errors"
)

func TestNewRunnerPathResolution(t *testing.T) {
	t.Run("ExplicitPath", func(t *testing.T) {
		t.Setenv(FFmpegEnv, "/from/env/ffmpeg")
		assert.Equal(t, "/opt/ffmpeg", NewRunner("/opt/ffmpeg").FFmpegPath)
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv(FFmpegEnv, "/from/env/ffmpeg")
		assert.Equal(t, "/from/env/ffmpeg", NewRunner("").FFmpegPath)
	})

	t.Run("Default", func(t *testing.T) {
		t.Setenv(FFmpegEnv, "")
		assert.Equal(t, "ffmpeg", NewRunner("").FFmpegPath)
	})
}

func TestTranscodeMissingTool(t *testing.T) {
	r := NewRunner("/nonexistent/hum-grep-ffmpeg")

	err := r.Transcode(context.Background(), "in.webm", "out.wav", 22050)

	assert := assert.New(t)
	assert.ErrorIs(err, apperrors.ErrToolNotInstalled)
	var pe *apperrors.ProcessError
	assert.True(errors.As(err, &pe))
	assert.Equal("transcode", pe.Stage)
}
