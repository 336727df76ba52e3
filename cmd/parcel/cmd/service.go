/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/parcel/pkg/config"
)

const serviceName = "parcel.service"

// runCommand runs a system command with the process's stdio. Tests replace it.
var runCommand = func(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func runSystemctl(args ...string) error {
	return runCommand("systemctl", args...)
}

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the parcel ingest API as a systemd service",
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install parcel serve as a systemd service",
	Long: `Write a systemd unit that runs "parcel serve" with the given configuration,
then enable and optionally start it. A configuration is bootstrapped when none
exists.

Examples:
  sudo parcel service install
  sudo parcel service install --data-dir /var/lib/parcel --user parcel`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		unitDir, _ := cmd.Flags().GetString("unit-dir")
		startNow, _ := cmd.Flags().GetBool("start")

		if os.Geteuid() != 0 && unitDir == defaultUnitDir {
			return errors.New("service install requires root privileges, run with sudo")
		}

		binary, err := os.Executable()
		if err != nil {
			return errors.Wrap(err, "locate parcel binary")
		}

		cfg := rt.cfg
		if !config.ConfigExists(rt.configPath) {
			if cfg, err = config.BootstrapConfig(rt.configPath, cfg.DataDir); err != nil {
				return err
			}
			fprintf(cmd.OutOrStdout(), "Created configuration at %s\n", rt.configPath)
		}

		if err := installService(cfg, rt.configPath, user, binary, unitDir, startNow); err != nil {
			return err
		}
		fprintf(cmd.OutOrStdout(), "Installed %s (config %s, data %s)\n", serviceName, rt.configPath, cfg.DataDir)
		return nil
	},
}

var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable and remove the parcel service",
	RunE: func(cmd *cobra.Command, args []string) error {
		unitDir, _ := cmd.Flags().GetString("unit-dir")
		if os.Geteuid() != 0 && unitDir == defaultUnitDir {
			return errors.New("service uninstall requires root privileges, run with sudo")
		}
		if err := uninstallService(unitDir); err != nil {
			return err
		}
		fprintf(cmd.OutOrStdout(), "Removed %s. Configuration and data were kept.\n", serviceName)
		return nil
	},
}

var logsServiceCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show parcel service logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", serviceName}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand("journalctl", journalArgs...)
	},
}

const defaultUnitDir = "/etc/systemd/system"

func systemctlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctl(action, serviceName)
		},
	}
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(
		installServiceCmd,
		uninstallServiceCmd,
		logsServiceCmd,
		systemctlCmd("start", "Start the parcel service"),
		systemctlCmd("stop", "Stop the parcel service"),
		systemctlCmd("restart", "Restart the parcel service"),
		systemctlCmd("status", "Show parcel service status"),
	)

	serviceCmd.PersistentFlags().String("unit-dir", defaultUnitDir, "Directory holding systemd unit files")
	installServiceCmd.Flags().String("user", "parcel", "User to run the service as")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")
	logsServiceCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsServiceCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// renderUnit returns the systemd unit that runs parcel serve
func renderUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=Parcel envelope ingest API
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.DataDir)
}

func installService(cfg *config.Config, configPath, user, binary, unitDir string, startNow bool) error {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	unitPath := filepath.Join(unitDir, serviceName)
	if err := os.WriteFile(unitPath, []byte(renderUnit(cfg, configPath, user, binary)), 0600); err != nil {
		return errors.Wrap(err, "write systemd unit")
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		return errors.Wrap(err, "reload systemd")
	}
	if err := runSystemctl("enable", serviceName); err != nil {
		return errors.Wrap(err, "enable service")
	}
	if startNow {
		if err := runSystemctl("start", serviceName); err != nil {
			return errors.Wrap(err, "start service")
		}
	}
	return nil
}

func uninstallService(unitDir string) error {
	_ = runSystemctl("stop", serviceName)
	_ = runSystemctl("disable", serviceName)

	unitPath := filepath.Join(unitDir, serviceName)
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove unit file")
	}
	return errors.Wrap(runSystemctl("daemon-reload"), "reload systemd")
}
