package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cscheib/mount-status-monitor/internal/config"
)

// TempConfig writes fc as a JSON config file and returns its path. The file
// is removed when the test completes.
//
// Example:
//
//	path := testutil.TempConfig(t, &config.FileConfig{
//	    PollInterval: config.Duration(30 * time.Second),
//	    Mounts:       []string{"/mnt/nfs"},
//	})
func TempConfig(t *testing.T, fc *config.FileConfig) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	return path
}
