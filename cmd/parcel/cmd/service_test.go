package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommands records system commands instead of running them
func stubCommands(t *testing.T, fail string) *[]string {
	t.Helper()
	var calls []string
	original := runCommand
	runCommand = func(command string, args ...string) error {
		call := strings.Join(append([]string{command}, args...), " ")
		calls = append(calls, call)
		if fail != "" && call == fail {
			return errors.New("command failed")
		}
		return nil
	}
	t.Cleanup(func() { runCommand = original })
	return &calls
}

func TestRenderUnit(t *testing.T) {
	rt := testRuntime(t)
	unit := renderUnit(rt.cfg, "/etc/parcel/config.yaml", "parcel", "/usr/local/bin/parcel")

	assert.Contains(t, unit, "User=parcel")
	assert.Contains(t, unit, "Group=parcel")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/parcel serve --config /etc/parcel/config.yaml")
	assert.Contains(t, unit, "ReadWritePaths="+rt.cfg.DataDir)
}

func TestInstallService(t *testing.T) {
	rt := testRuntime(t)
	unitDir := t.TempDir()
	calls := stubCommands(t, "")

	require.NoError(t, installService(rt.cfg, rt.configPath, "parcel", "/usr/bin/parcel", unitDir, true))

	content, err := os.ReadFile(filepath.Join(unitDir, serviceName))
	require.NoError(t, err)
	assert.Contains(t, string(content), rt.configPath)
	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable parcel.service",
		"systemctl start parcel.service",
	}, *calls)
}

func TestInstallServiceStopsOnFailure(t *testing.T) {
	rt := testRuntime(t)
	calls := stubCommands(t, "systemctl enable parcel.service")

	err := installService(rt.cfg, rt.configPath, "parcel", "/usr/bin/parcel", t.TempDir(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enable service")
	assert.NotContains(t, *calls, "systemctl start parcel.service")
}

func TestUninstallService(t *testing.T) {
	unitDir := t.TempDir()
	unitPath := filepath.Join(unitDir, serviceName)
	require.NoError(t, os.WriteFile(unitPath, []byte("[Unit]\n"), 0600))
	calls := stubCommands(t, "systemctl stop parcel.service")

	require.NoError(t, uninstallService(unitDir))
	assert.NoFileExists(t, unitPath)
	assert.Equal(t, "systemctl daemon-reload", (*calls)[len(*calls)-1])

	require.NoError(t, uninstallService(unitDir))
}
