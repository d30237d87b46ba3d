package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hupe1980/activo"
	"github.com/hupe1980/activo/model"
	"github.com/hupe1980/activo/schema"
	"github.com/hupe1980/activo/storage"
	activoversion "github.com/hupe1980/activo/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Run a local write benchmark against a store directory",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd)
	},
	RunE: runPerf,
}

func init() {
	perfCmd.Flags().Int("n", 100000, "Number of updates to apply")
	perfCmd.Flags().Int("uids", 10000, "How many distinct uids to spread updates over")
	perfCmd.Flags().String("schema", "", "Optional schema file; defaults to a single int field")
}

func runPerf(_ *cobra.Command, _ []string) error {
	dir := viper.GetString("path")
	if dir == "" {
		return errors.New("perf: --path is required")
	}

	n := viper.GetInt("n")
	spread := viper.GetInt("uids")
	if spread <= 0 {
		spread = 1
	}

	sc, err := loadSchema(viper.GetString("schema"))
	if err != nil {
		return err
	}

	factory, err := storage.NewFileFactory(dir)
	if err != nil {
		return err
	}

	store, err := activo.Open(factory, sc, activoversion.Numeric)
	if err != nil {
		return err
	}

	fieldName := sc.Fields[0].Name

	fmt.Printf("applying %d updates over %d uids...\n", n, spread)

	start := time.Now()
	for i := 0; i < n; i++ {
		uid := model.UID(i % spread)
		store.Update(uid, strconv.Itoa(i+1), map[string]any{fieldName: "+1"})
	}
	elapsed := time.Since(start)

	delStart := time.Now()
	for uid := 0; uid < spread/2; uid++ {
		store.Delete(strconv.Itoa(n+uid+1), model.UID(uid))
	}
	delElapsed := time.Since(delStart)

	store.Flush()

	live := store.LiveCount()

	if err := store.Close(); err != nil {
		return err
	}

	total := time.Since(start)

	fmt.Printf("updates:   %d in %s (%.0f ops/s)\n", n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
	fmt.Printf("deletes:   %d in %s\n", spread/2, delElapsed.Round(time.Millisecond))
	fmt.Printf("durable:   %s including final flush and close\n", total.Round(time.Millisecond))
	fmt.Printf("live uids: %d\n", live)

	return nil
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return &schema.Schema{
			Fields: []schema.FieldDefinition{{Name: "likes", Kind: schema.KindInt, Activity: true}},
		}, nil
	}
	return schema.LoadFile(path)
}
