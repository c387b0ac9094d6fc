package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteVersion(t *testing.T) {
	t.Setenv("FOODGRAM_CONFIG", "")
	t.Chdir(t.TempDir())

	saved := os.Args
	t.Cleanup(func() { os.Args = saved })
	os.Args = []string{"foodgram", "version"}

	assert.NoError(t, Execute())
}
