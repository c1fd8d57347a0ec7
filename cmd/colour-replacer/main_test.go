package main

import (
	"context"
	"fmt"
	"testing"

	"colour-replacer/internal/editor"
	"colour-replacer/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	assert.Equal(t, "aborted", message(editor.ErrAborted))
	assert.Equal(t, "aborted", message(fmt.Errorf("%w: %w", editor.ErrAborted, context.Canceled)))

	err := fmt.Errorf("%w: photo.jpg", pipeline.ErrFileNotFound)
	assert.Equal(t, "file not found: photo.jpg", message(err))
}

func TestRootCommandArgs(t *testing.T) {
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
	assert.NoError(t, rootCmd.Args(rootCmd, []string{"a.png"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"a.png", "b.png"}))
}
