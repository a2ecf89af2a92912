package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage the analyzed portfolio",
}

var portfolioImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the stored portfolio with a .csv or .txt file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		db, err := database.New(cfg.Database.Driver, cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.RunMigrations(); err != nil {
			return err
		}

		p, err := portfolio.NewImporter(db, log).Import(cmd.Context(), filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported portfolio %s with %d holdings\n", p.ID, len(p.Holdings))
		return nil
	},
}

var portfolioSamplesCmd = &cobra.Command{
	Use:   "samples DIR",
	Short: "Write the sample portfolio files to DIR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := portfolio.WriteSamples(args[0])
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	portfolioCmd.AddCommand(portfolioImportCmd)
	portfolioCmd.AddCommand(portfolioSamplesCmd)
}
