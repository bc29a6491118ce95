package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importFlags struct {
	file  string
	winds bool
}

// importCmd loads extracted observations into the store
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import extracted satellite observations",
	Long: `Import observations from a CSV file into the local store.

The file needs a header line

  day,lat,lon,vcd,wind_u,wind_v

with one column sample per row: the observation day (2006-01-02),
position, vertical column density in mol/m² and the wind components
in m/s at the overpass. The wind columns may be left empty, in which
case the nearest stored reanalysis wind is joined in. The plume method
reads its observations from the store, so this is how externally
extracted level-2 subsets enter a calculation.

With --winds the file is read as reanalysis wind samples instead,
with the header

  day,level,lat,lon,u,v

where level is the pressure level in hPa.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFlags.file, "file", "", "CSV file to import (required)")
	importCmd.Flags().BoolVar(&importFlags.winds, "winds", false, "import reanalysis winds instead of observations")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	f, err := os.Open(importFlags.file)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if importFlags.winds {
		n, err := st.ImportWindsCSV(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d wind samples\n", n)
		return nil
	}

	n, err := st.ImportObservationsCSV(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d observations\n", n)
	return nil
}
