package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/filmnetlabs/filmnet/internal/config"
	"github.com/filmnetlabs/filmnet/internal/logbuffer"
	"github.com/filmnetlabs/filmnet/internal/logging"
	"github.com/filmnetlabs/filmnet/internal/mediaengine"
	"github.com/filmnetlabs/filmnet/internal/server"
	"github.com/filmnetlabs/filmnet/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	logBuf *logbuffer.Buffer

	autostart bool
)

var rootCmd = &cobra.Command{
	Use:   "filmnet",
	Short: "Filmnet - Simulated linear movie channel",
	Long:  "Filmnet runs a scheduled movie channel as a continuous HLS stream: themed clubs own hourly slots, a date-seeded shuffle assigns movies, and ffmpeg does the playout.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Filmnet server",
	Long:  "Start the HTTP API and the playout engine control surface",
	RunE:  runServe,
}

var detectCmd = &cobra.Command{
	Use:   "detect-encoder",
	Short: "Probe the host for a working H.264 encoder",
	RunE:  runDetect,
}

var probeCmd = &cobra.Command{
	Use:   "probe [file...]",
	Short: "Print container durations via ffprobe",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autostart, "autostart", false, "start the playout engine immediately")
	rootCmd.AddCommand(serveCmd, detectCmd, probeCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuf = logbuffer.New(0)
	logger = logging.SetupWithWriter(cfg.Environment, logbuffer.NewWriter(logBuf))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.Version).Msg("Filmnet starting")

	srv, err := server.New(cmd.Context(), cfg, logger, logBuf)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	if autostart {
		if err := srv.Engine().Start(context.Background()); err != nil {
			logger.Error().Err(err).Msg("engine autostart failed")
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Filmnet stopped")
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	detector := mediaengine.NewDetector(cfg.FFmpegBin, cfg.SmokeTestTimeout, logger)
	enc := detector.Detect(cmd.Context())

	fmt.Printf("encoder: %s\npreset: %s\nlabel: %s\n", enc.Name, enc.Preset, enc.Label)
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	prober := mediaengine.NewProber(cfg.FFprobeBin, logger)
	for _, path := range args {
		seconds := prober.Duration(cmd.Context(), path)
		fmt.Printf("%s\t%.2fs\n", path, seconds)
	}
	return nil
}
