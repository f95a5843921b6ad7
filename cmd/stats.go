package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moazrovne/harvest-cli/internal/cache"
	"github.com/moazrovne/harvest-cli/internal/dataset"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the local dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := dataset.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		withImage := 0
		for _, q := range questions {
			if q.HasImage() {
				withImage++
			}
		}

		fmt.Printf("Dataset: %s\n", cfg.Dataset.Path)
		fmt.Printf("Questions: %d\n", len(questions))
		fmt.Printf("Highest ID: %d\n", dataset.NextID(questions)-1)
		fmt.Printf("With image: %d\n", withImage)

		media, err := cache.NewMediaStore(cfg.Cache.MediaDir)
		if err == nil {
			if n, err := media.Count(); err == nil {
				fmt.Printf("Cached images: %d\n", n)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
