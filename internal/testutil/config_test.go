package testutil_test

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/config"
	"github.com/cscheib/mount-status-monitor/internal/testutil"
	"github.com/matryer/is"
)

func TestTempConfig(t *testing.T) {
	is := is.New(t)

	fc := &config.FileConfig{
		PollInterval: config.Duration(30 * time.Second),
		Mounts:       []string{"/mnt/nfs"},
		HTTPPort:     8080,
	}

	path := testutil.TempConfig(t, fc)

	data, err := os.ReadFile(path)
	is.NoErr(err) // Config file should exist

	var loaded config.FileConfig
	is.NoErr(json.Unmarshal(data, &loaded)) // Config should be valid JSON

	is.Equal(loaded.PollInterval, fc.PollInterval) // Duration round-trips as a string
	is.Equal(loaded.Mounts, fc.Mounts)
	is.Equal(loaded.HTTPPort, 8080)
}

func TestTempConfig_MultipleConfigs(t *testing.T) {
	is := is.New(t)

	path1 := testutil.TempConfig(t, &config.FileConfig{HTTPPort: 8081})
	path2 := testutil.TempConfig(t, &config.FileConfig{HTTPPort: 8082})

	is.True(path1 != path2) // Each config should have unique path
}
