package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"space-emissions/internal/config"
	"space-emissions/internal/download"
	"space-emissions/internal/geo"
	"space-emissions/internal/providers/cds"
	"space-emissions/internal/providers/sentinel"
	"space-emissions/internal/store"
	"space-emissions/internal/timezone"
	"space-emissions/internal/types"
)

var downloadFlags struct {
	start       string
	end         string
	region      string
	pollutant   string
	productType string
	satellite   string
	dir         string
	levels      []string
	times       []string
	replace     bool
}

// downloadCmd groups the data acquisition commands
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download satellite products and reanalysis winds",
	Long: `Download the input data the estimation methods work on.

Available subcommands:
  tropomi - Sentinel-5P level-2 products for a region and period
  era5    - ERA5 u/v wind fields matching the satellite overpass`,
}

// downloadTropomiCmd downloads Sentinel-5P products
var downloadTropomiCmd = &cobra.Command{
	Use:   "tropomi",
	Short: "Download Sentinel-5P level-2 products",
	RunE:  runDownloadTropomi,
}

// downloadERA5Cmd downloads ERA5 wind fields
var downloadERA5Cmd = &cobra.Command{
	Use:   "era5",
	Short: "Download ERA5 wind fields",
	RunE:  runDownloadERA5,
}

func init() {
	for _, cmd := range []*cobra.Command{downloadTropomiCmd, downloadERA5Cmd} {
		cmd.Flags().StringVar(&downloadFlags.start, "start", "", "First day, e.g. 2019-06-01 (required)")
		cmd.Flags().StringVar(&downloadFlags.end, "end", "", "Last day, e.g. 2019-06-30 (required)")
		cmd.Flags().StringVar(&downloadFlags.region, "region", "", "Path to a GeoJSON region file (required)")
		cmd.Flags().StringVar(&downloadFlags.dir, "dir", "", "Target directory (default from config)")
		cmd.Flags().BoolVar(&downloadFlags.replace, "replace", false, "Re-download existing files")
		_ = cmd.MarkFlagRequired("start")
		_ = cmd.MarkFlagRequired("end")
		_ = cmd.MarkFlagRequired("region")
	}
	downloadTropomiCmd.Flags().StringVar(&downloadFlags.pollutant, "pollutant", "NO2", "Pollutant the products must carry")
	downloadTropomiCmd.Flags().StringVar(&downloadFlags.productType, "product-type", "NO2", "Hub product type, full or partial")
	downloadTropomiCmd.Flags().StringVar(&downloadFlags.satellite, "satellite", "s5p", "Satellite platform")
	downloadERA5Cmd.Flags().StringSliceVar(&downloadFlags.levels, "levels", nil, "Pressure levels in hPa (default 1000,950)")
	downloadERA5Cmd.Flags().StringSliceVar(&downloadFlags.times, "times", nil, "UTC sample times HH:MM (default: local overpass hour)")

	downloadCmd.AddCommand(downloadTropomiCmd)
	downloadCmd.AddCommand(downloadERA5Cmd)
}

func runDownloadTropomi(cmd *cobra.Command, args []string) error {
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

	region, err := geo.LoadRegion(downloadFlags.region)
	if err != nil {
		return err
	}
	period, err := types.NewDateRange(downloadFlags.start, downloadFlags.end)
	if err != nil {
		return err
	}
	pollutant, err := types.ParsePollutant(downloadFlags.pollutant)
	if err != nil {
		return err
	}

	svc, err := downloadService(cfg, st, logger)
	if err != nil {
		return err
	}
	n, err := svc.Tropomi(cmd.Context(), region, period, download.TropomiOptions{
		Satellite:   downloadFlags.satellite,
		ProductType: downloadFlags.productType,
		Pollutant:   pollutant,
		Dir:         downloadFlags.dir,
		Replace:     downloadFlags.replace,
	})
	if err != nil {
		return err
	}
	fmt.Printf("downloaded %d products\n", n)
	return nil
}

func runDownloadERA5(cmd *cobra.Command, args []string) error {
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

	region, err := geo.LoadRegion(downloadFlags.region)
	if err != nil {
		return err
	}
	period, err := types.NewDateRange(downloadFlags.start, downloadFlags.end)
	if err != nil {
		return err
	}

	svc, err := downloadService(cfg, st, logger)
	if err != nil {
		return err
	}
	return svc.ERA5(cmd.Context(), region, period, download.ERA5Options{
		Levels:  downloadFlags.levels,
		Times:   downloadFlags.times,
		Dir:     downloadFlags.dir,
		Replace: downloadFlags.replace,
	})
}

func downloadService(cfg *config.Config, st *store.Store, logger *slog.Logger) (*download.Service, error) {
	tz, err := timezone.NewService()
	if err != nil {
		return nil, err
	}
	return download.NewService(
		sentinel.NewClient(logger),
		cds.NewClient(cfg.CDS.UID, cfg.CDS.Key, logger),
		st, tz, logger,
	), nil
}
