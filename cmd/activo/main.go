// Command activo inspects and exercises activity stores from the
// command line. Configuration is resolved flags > environment
// (ACTIVO_*) > optional config file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "activo",
	Short: "activity value store tooling",
	Long: fmt.Sprintf(`activo (v%s)

Tooling for activity value stores: inspect persisted state and run
local write benchmarks against a store directory.`, version),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the activo version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("activo v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Optional path to a config file")
	rootCmd.PersistentFlags().String("path", "", "Store directory")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(perfCmd)
}

func initConfig() {
	viper.SetEnvPrefix("activo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Initializers run before PreRunE binds flags into viper, so the
	// flag value has to be read from pflag directly here.
	cfgFile := viper.GetString("config")
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && f.Changed {
		cfgFile = f.Value.String()
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(1)
		}
	}
}

// bindFlags makes every flag of cmd resolvable through viper, so
// environment variables and config file entries act as fallbacks.
func bindFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Root().PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
