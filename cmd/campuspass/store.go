package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/campuspass/server/internal/campus/service"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and the default administrator",
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		fmt.Fprintf(cmd.OutOrStdout(), "store ready at %s\n", rt.mgr.Path())
		return nil
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo user, sensors, vehicles and passages",
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		if err := service.SeedDemo(cmd.Context(), rt.store); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "demo data loaded")
		return nil
	}),
}

var (
	exportFormat   string
	exportOut      string
	exportPageSize int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump users, sensors, vehicles and passages page by page",
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		snap, err := rt.engine.Export(cmd.Context(), exportPageSize)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return service.WriteSnapshot(w, snap, exportFormat)
	}),
}

var purgeFrom, purgeTo string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: `Delete passage records with --from <= passage_time <= --to ("YYYY-MM-DD HH:MM:SS")`,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		res := rt.engine.DeletePassageRecordsByTime(cmd.Context(), purgeFrom, purgeTo)
		if !res.OK {
			return fmt.Errorf("%s", res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	}),
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	exportCmd.Flags().IntVar(&exportPageSize, "page-size", 100, "rows fetched per page")

	purgeCmd.Flags().StringVar(&purgeFrom, "from", "", "inclusive lower bound")
	purgeCmd.Flags().StringVar(&purgeTo, "to", "", "inclusive upper bound")
	_ = purgeCmd.MarkFlagRequired("from")
	_ = purgeCmd.MarkFlagRequired("to")
}
