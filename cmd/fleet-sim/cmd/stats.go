package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print fleet statistics from the store",
	RunE:  runStats,
}

func runStats(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	client, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()

	health := client.Health(ctx)
	if health.Status != "healthy" {
		return fmt.Errorf("store unhealthy: %s", health.Error)
	}

	cache := store.NewStatsCache(store.NewMongoSource(client, cfg))
	stats := cache.RealTimeStats(ctx)
	if stats.Error {
		return fmt.Errorf("statistics unavailable")
	}

	header := color.New(color.FgCyan, color.Bold)
	value := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	header.Println("Fleet Statistics")
	fmt.Printf("  Missions:     %s\n", value.Sprint(stats.TotalMissions))
	fmt.Printf("  Data points:  %s\n", value.Sprint(stats.TotalDataPoints))
	fmt.Printf("  Robots:       %s\n", value.Sprint(stats.UniqueRobots))
	fmt.Printf("  Recent (1h):  %s\n", value.Sprint(stats.RecentMissions))

	header.Println("Battery")
	fmt.Printf("  Avg start:    %s%%\n", value.Sprintf("%.1f", stats.BatteryAnalysis.AvgStartBattery))
	fmt.Printf("  Avg end:      %s%%\n", value.Sprintf("%.1f", stats.BatteryAnalysis.AvgEndBattery))
	fmt.Printf("  Avg drain:    %s%%\n", value.Sprintf("%.1f", stats.BatteryAnalysis.AvgBatteryDrain))

	if len(stats.LocationAnalysis.BusiestLocations) > 0 {
		header.Println("Busiest Locations")
		for _, bucket := range stats.LocationAnalysis.BusiestLocations {
			fmt.Printf("  %s/%s: %d missions\n", bucket.Site, bucket.Line, bucket.Count)
		}
	}

	logger.LogKeyValue("Storage mode", stats.StorageMode)
	logger.LogKeyValue("Query time", fmt.Sprintf("%.2fms", stats.QueryExecutionTimeMS))
	if stats.Partial {
		warn.Println("warning: detailed statistics unavailable, showing basic counts only")
	}
	return nil
}
