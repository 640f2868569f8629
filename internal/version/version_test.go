package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "v1.2.3", "abc123", "2026-10-18"

	info := GetVersion()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, "2026-10-18", info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown", GoVersion: "go1.25.0", Platform: "linux/amd64"}
	assert.Equal(t, "uatrack-server dev (commit: unknown, built: unknown, go1.25.0, linux/amd64)", info.String())
}
