package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, _, err := executeCommand(t, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "sercha-rag version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()

	out, _, err := executeCommand(t, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "sercha-rag version dev")
}

func TestVersionCmd_NeedsNoServices(t *testing.T) {
	SetServices(nil, nil)

	_, _, err := executeCommand(t, "", "version")

	assert.NoError(t, err)
}

func TestVersionCmd_PrintsPlatform(t *testing.T) {
	out, _, err := executeCommand(t, "", "version")

	assert.NoError(t, err)
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, _, err := executeCommand(t, "", "version", "extra")

	assert.Error(t, err)
}
