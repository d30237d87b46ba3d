package main

import (
	"errors"
	"fmt"

	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the persisted state of a store directory",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd)
	},
	RunE: runInspect,
}

func runInspect(_ *cobra.Command, _ []string) error {
	dir := viper.GetString("path")
	if dir == "" {
		return errors.New("inspect: --path is required")
	}

	factory, err := storage.NewFileFactory(dir)
	if err != nil {
		return err
	}

	meta, err := factory.Metadata()
	if err != nil {
		return err
	}
	if err := meta.Init(); err != nil {
		return err
	}

	records, err := factory.RecordStore()
	if err != nil {
		return err
	}
	defer records.Close()

	uids, err := records.Restore()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	live, free := 0, 0
	for _, uid := range uids {
		if uid == model.DeletedUID {
			free++
		} else {
			live++
		}
	}

	fmt.Printf("path:            %s\n", dir)
	fmt.Printf("durable version: %q\n", meta.Version())
	fmt.Printf("durable count:   %d\n", meta.Count())
	fmt.Printf("record slots:    %d (live %d, free %d)\n", len(uids), live, free)

	return nil
}
