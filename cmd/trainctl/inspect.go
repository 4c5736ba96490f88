package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openimaging/go-trainer/dataset"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image-dir>",
	Short: "discover a dataset and report its dimensions, splits and batch plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openDataset(args[0])
		if err != nil {
			return err
		}
		if seed := viper.GetInt64("seed"); seed != 0 {
			m.SetSeed(seed)
		}
		if err := m.SetBatchSize(viper.GetInt("batch-size")); err != nil {
			return err
		}

		train, valid, test := m.Counts()
		trainSteps, validSteps := m.StepCounts()
		fmt.Printf("mode:           %s\n", m.Mode())
		fmt.Printf("samples:        %d (train %d / valid %d / test %d)\n", m.Len(), train, valid, test)
		fmt.Printf("original dims:  %s\n", m.OriginalDims())
		fmt.Printf("target dims:    %s\n", m.TargetDims())
		fmt.Printf("mean file size: %.0f bytes\n", m.MeanFileSize())
		fmt.Printf("batch size:     %d\n", m.BatchSize())
		fmt.Printf("steps:          %d train / %d valid per epoch\n", trainSteps, validSteps)
		if classes := m.Classes(); len(classes) > 0 {
			fmt.Printf("classes:        %v\n", classes)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().String("masks", "", "directory of mask images paired with the image directory")
	inspectCmd.Flags().String("labels", "", "CSV file of (id, label) rows")
	inspectCmd.Flags().Int("batch-size", 16, "requested batch size, adapted to the memory budget")
	inspectCmd.Flags().Int64("seed", 0, "split seed override")
	_ = viper.BindPFlags(inspectCmd.Flags())
}

func openDataset(imageDir string) (*dataset.Manager, error) {
	paths := dataset.Paths{
		Images: imageDir,
		Masks:  viper.GetString("masks"),
		Labels: viper.GetString("labels"),
	}
	switch {
	case paths.Masks != "":
		return dataset.NewImgMaskDataset(paths)
	case paths.Labels != "":
		return dataset.NewImgLabelDataset(paths)
	default:
		return nil, fmt.Errorf("either --masks or --labels is required")
	}
}
