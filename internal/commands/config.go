package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spactl/internal/config"
	"spactl/internal/models"
	"spactl/internal/storage"
	"spactl/internal/store"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage spactl configuration",
	Long:  "View and update spactl configuration settings",
	// A broken config file must not stop 'config set' from repairing it
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if globalConfig != nil {
			return nil
		}
		path, err := config.GetGlobalConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			warning.Fprintf(cmd.ErrOrStderr(), "Warning: %v (showing defaults)\n", err)
			cfg = config.Default(filepath.Dir(path))
		}
		globalConfig = cfg
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get configuration value",
	Long:  "Display a configuration value, or all of them. Values include SPACTL_* overrides.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			v, err := globalConfig.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, v)
			return nil
		}

		fmt.Fprintln(out, "Current configuration:")
		for _, key := range config.Keys() {
			v, _ := globalConfig.Get(key)
			if key == "storage.redis.password" && v != "" {
				v = "********"
			}
			fmt.Fprintf(out, "  %s = %s\n", key, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetGlobalConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		if err := config.Set(path, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		success.Fprintf(cmd.OutOrStdout(), "%s updated: %s\n", args[0], args[1])
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  "Create a new configuration file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		path, err := config.GetGlobalConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			fmt.Fprintln(out, "Configuration file already exists.")
			fmt.Fprintln(out, "Use 'spactl config set' to modify it, or --force to overwrite it.")
			return nil
		}

		if err := config.Default(filepath.Dir(path)).Save(path); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		fmt.Fprintln(out, "Configuration initialized successfully.")
		fmt.Fprintf(out, "Configuration file created at: %s\n", path)
		return nil
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show configuration file paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		dir, err := config.GetGlobalConfigDir()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, config.ConfigFileName)

		fmt.Fprintln(out, "Config paths:")
		fmt.Fprintf(out, "- Config directory: %s\n", dir)
		fmt.Fprintf(out, "- Config file: %s %s\n", path, existence(path))

		fmt.Fprintf(out, "\nStorage (%s driver):\n", globalConfig.Storage.Driver)
		switch globalConfig.Storage.Driver {
		case storage.DriverFile:
			fs := &storage.FileStorage{Dir: globalConfig.Storage.Dir}
			for _, key := range []string{models.TokenKey, store.StorageKey} {
				p := fs.Path(key)
				fmt.Fprintf(out, "- %s: %s %s\n", key, p, existence(p))
			}
		case storage.DriverRedis:
			fmt.Fprintf(out, "- Address: %s (db %d, prefix %q)\n",
				globalConfig.Storage.Redis.Addr, globalConfig.Storage.Redis.DB, globalConfig.Storage.Redis.Prefix)
		}

		return nil
	},
}

func existence(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "(does not exist)"
	}
	return "(exists)"
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathsCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
}
