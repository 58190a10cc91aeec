package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agvsim/fleet-simulator/pkg/api"
	"github.com/agvsim/fleet-simulator/pkg/config"
	"github.com/agvsim/fleet-simulator/pkg/logger"
	"github.com/agvsim/fleet-simulator/pkg/manager"
	"github.com/agvsim/fleet-simulator/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fleet simulator service",
	Long: `Serve connects to MongoDB, provisions indexes, and exposes the fleet
control API. Robots are started and stopped through the API; SIGINT stops
every running robot and shuts the server down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides config)")
	serveCmd.Flags().Bool("start-all", false, "start every robot immediately")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.API.ListenAddr = listen
	}

	if err := promptForMongoURI(cfg); err != nil {
		return err
	}

	logger.LogSection("Fleet Simulator")
	logger.LogKeyValue("Robots", cfg.Simulation.RobotCount)
	logger.LogKeyValue("Storage", storageMode(cfg.Simulation.NormalizedStorage))
	logger.LogKeyValue("Interval", cfg.Scheduling.MissionInterval)
	logger.LogKeyValue("Listen", cfg.API.ListenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Progress("Connecting to MongoDB...")
	client, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()
	logger.Success("Connected to MongoDB")

	client.EnsureIndexes(ctx, cfg.Simulation.NormalizedStorage)

	gateway := store.NewGateway(client, cfg.Simulation.NormalizedStorage)
	stats := store.NewStatsCache(store.NewMongoSource(client, cfg))
	mgr := manager.New(cfg, gateway)

	if startAll, _ := cmd.Flags().GetBool("start-all"); startAll {
		result := mgr.StartAll()
		logger.Successf("Started %d robots", result.Affected)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Warn("Received interrupt signal, stopping fleet...")
		result := mgr.StopAll()
		logger.Infof("Stopped %d robots", result.Affected)
		cancel()
	}()

	server := api.NewServer(mgr, stats, client)
	if err := server.ListenAndServe(ctx, cfg.API.ListenAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Success("Shutdown complete")
	return nil
}

// promptForMongoURI confirms the connection string when nothing overrode the
// built-in default and we are attached to a terminal, so interactive runs get
// a chance to point at a real deployment.
func promptForMongoURI(cfg *config.Config) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}
	if cfg.Database.URI != config.GetDefaultConfig().Database.URI || os.Getenv("FLEET_MONGO_URI") != "" {
		return nil
	}

	prompt := &survey.Input{
		Message: "MongoDB connection string:",
		Default: cfg.Database.URI,
	}
	return survey.AskOne(prompt, &cfg.Database.URI, survey.WithValidator(survey.Required))
}

func storageMode(normalized bool) string {
	if normalized {
		return "normalized"
	}
	return "single_collection"
}
