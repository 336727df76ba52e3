package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/parcel/pkg/config"
	"github.com/ssargent/parcel/pkg/logging"
)

func testRuntime(t *testing.T) *runtime {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Spool.Sync = false
	cfg.Server.APIKey = "test-key"
	return &runtime{cfg: cfg, configPath: filepath.Join(cfg.DataDir, "config.yaml"), logger: logging.Nop()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

var testTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

const testEventJSON = `{"event_id":"9ec79c33ec9942ab8353589fcb2e04dc","level":"error","message":"disk full"}`
