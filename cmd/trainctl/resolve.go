package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openimaging/go-trainer/models"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <model-name>",
	Short: "resolve a requested model name against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := models.Resolve(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("requested:  %s\n", spec.RequestedName)
		fmt.Printf("base:       %s\n", spec.BaseName)
		fmt.Printf("complexity: %s\n", orNone(spec.Complexity))
		fmt.Printf("version:    %s\n", spec.Version)
		fmt.Printf("task:       %s\n", spec.Task)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "list the model families in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range models.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
