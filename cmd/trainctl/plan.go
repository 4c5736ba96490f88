package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openimaging/go-trainer/checkpoints"
	"github.com/openimaging/go-trainer/models"
	"github.com/openimaging/go-trainer/nn"
)

var planCmd = &cobra.Command{
	Use:   "plan <model-name>",
	Short: "resolve and build a model, then print its layer plan and run files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shape := nn.Shape{
			Height:   viper.GetInt("height"),
			Width:    viper.GetInt("width"),
			Channels: viper.GetInt("channels"),
		}
		spec, network, err := models.ResolveAndBuild(args[0], shape)
		if err != nil {
			return err
		}

		fmt.Printf("model: %s (%s, task %s)\n", spec.RequestedName, network.Symbol, spec.Task)
		fmt.Printf("input: %s\n\n", network.InputShape)
		for i, layer := range network.Layers {
			fmt.Printf("%3d  %-12s %s\n", i, layer.Type, layer.Name)
		}

		if top := viper.GetString("model-path"); top != "" {
			files := checkpoints.RunFilesFor(filepath.Join(top, spec.RequestedName), spec.RequestedName)
			fmt.Printf("\ncheckpoint: %s\nhistory:    %s\n", files.Checkpoint, files.History)
			if files.BothExist() {
				fmt.Println("resume:     yes (complete checkpoint/history pair found)")
			} else {
				fmt.Println("resume:     no (run would start fresh)")
			}
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Int("height", 256, "input height")
	planCmd.Flags().Int("width", 256, "input width")
	planCmd.Flags().Int("channels", 3, "input channels")
	planCmd.Flags().String("model-path", "", "artifact directory root, prints the run file paths")
	_ = viper.BindPFlags(planCmd.Flags())
}
