package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/safih1/policedispatch/auth"
	"github.com/safih1/policedispatch/config"
	"github.com/safih1/policedispatch/core/dispatch"
	"github.com/safih1/policedispatch/core/geo"
	"github.com/safih1/policedispatch/core/model"
	"github.com/safih1/policedispatch/infra/logger"
	"github.com/safih1/policedispatch/infra/officers"
)

var (
	nearestLat   float64
	nearestLng   float64
	nearestLimit int
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "List available officers ranked by distance to a point",
	RunE:  runNearest,
}

func init() {
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "target latitude")
	nearestCmd.Flags().Float64Var(&nearestLng, "lng", 0, "target longitude")
	nearestCmd.Flags().IntVarP(&nearestLimit, "limit", "n", 0, "maximum number of officers (0 for all)")
	_ = nearestCmd.MarkFlagRequired("lat")
	_ = nearestCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(nearestCmd)
}

func runNearest(cmd *cobra.Command, args []string) error {
	target := model.Coordinates{Lat: nearestLat, Lng: nearestLng}
	if !target.Valid() {
		return fmt.Errorf("coordinates %s are out of range", target)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	timeout := time.Duration(cfg.Dispatch.RequestTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	roster := officers.New(cfg.Backend.APIURL, auth.HTTPClient(ctx, cfg.Backend.Auth, timeout), logger.New("nearest"))
	list, err := roster.Available(ctx)
	if err != nil {
		return err
	}
	return printRanked(cmd.OutOrStdout(), dispatch.Rank(list, target), nearestLimit)
}

func printRanked(w io.Writer, ranked []model.Officer, limit int) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "no officers available")
		return err
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBADGE\tDISTANCE_KM")
	for _, o := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\n", o.ID, o.Name, o.BadgeNumber, geo.Round2(o.DistanceKm))
	}
	return tw.Flush()
}
