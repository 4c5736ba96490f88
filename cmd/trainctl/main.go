// trainctl inspects model names, datasets and training plans without
// running any training.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/openimaging/go-trainer/logger"
)

var rootCmd = &cobra.Command{
	Use:   "trainctl",
	Short: "inspect models, datasets and training plans",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg := viper.GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
		}
		if viper.GetBool("verbose") {
			logger.SetLevel(zapcore.DebugLevel)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "config file (flags take precedence)")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	viper.SetEnvPrefix("trainctl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
