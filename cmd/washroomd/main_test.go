package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogToFile_RestoresTerminalBeforeClosing(t *testing.T) {
	prevOut, prevPrefix := log.Writer(), log.Prefix()
	defer func() {
		log.SetOutput(prevOut)
		log.SetPrefix(prevPrefix)
	}()

	path := filepath.Join(t.TempDir(), "washroomd.log")
	var terminal bytes.Buffer
	logger := log.New(&terminal, "washroomd ", 0)

	restore, err := logToFile(path, logger)
	require.NoError(t, err)

	log.Print("engine line")
	logger.Print("main line")
	restore()

	assert.Equal(t, os.Stderr, log.Writer())
	assert.Equal(t, os.Stdout, logger.Writer())
	assert.Equal(t, os.Stdout, gin.DefaultWriter)
	assert.Equal(t, os.Stderr, gin.DefaultErrorWriter)

	// Late shutdown logs must not go to the closed file.
	var late bytes.Buffer
	log.SetOutput(&late)
	log.Print("worker stopped")
	assert.Contains(t, late.String(), "worker stopped")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "engine line")
	assert.Contains(t, string(content), "main line")
	assert.NotContains(t, string(content), "worker stopped")
	assert.Empty(t, terminal.String())
}
