// SPDX-License-Identifier: GPL-3.0-only

// Package main provides the entry point for the Unblind brightness daemon.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shini4i/unblind-daemon/internal/app"
	"github.com/shini4i/unblind-daemon/internal/config"
	"github.com/shini4i/unblind-daemon/internal/schedule"
	"github.com/shini4i/unblind-daemon/internal/sun"
)

var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "unblind-daemon",
		Short: "Day/night brightness scheduler for external and built-in displays",
		Long: `unblind-daemon switches display brightness between a day and a night
level, fading smoothly over a configurable transition window.

Start times are either fixed or follow sunrise and sunset at a configured
location. The schedule is exposed over D-Bus and persisted in SQLite.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	sunLatitude  string
	sunLongitude string

	sunCmd = &cobra.Command{
		Use:   "sun",
		Short: "Print today's sunrise and sunset for a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSunTimes(cmd.OutOrStdout(), sunLatitude, sunLongitude, time.Now())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	sunCmd.Flags().StringVar(&sunLatitude, "lat", "", "Latitude in decimal degrees")
	sunCmd.Flags().StringVar(&sunLongitude, "lon", "", "Longitude in decimal degrees")
	_ = sunCmd.MarkFlagRequired("lat")
	_ = sunCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(sunCmd)
}

// setupLogging configures the global logger. Verbose overrides the level
// from the config file.
func setupLogging(cfg config.LogConfig, verbose bool, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}

func printSunTimes(w io.Writer, latitude, longitude string, now time.Time) error {
	lat, lon, err := sun.ParseCoordinates(latitude, longitude)
	if err != nil {
		return err
	}
	times, err := sun.SunriseSunset(lat, lon, now)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "sunrise %s\nsunset  %s\n",
		schedule.FormatTimeOfDay(schedule.TimeOfDay(times.Sunrise)),
		schedule.FormatTimeOfDay(schedule.TimeOfDay(times.Sunset)))
	return err
}

func run() error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogging(cfg.Log, verbose, os.Stderr)

	log.Info().Str("config", configPath).Msg("Starting unblind-daemon")

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	if err := a.Start(app.SignalContext()); err != nil {
		_ = a.Stop()
		return err
	}

	log.Info().Msg("Daemon running, press Ctrl+C to stop")
	a.Wait()

	if err := a.Stop(); err != nil {
		log.Error().Err(err).Msg("Errors during shutdown")
	}
	log.Info().Msg("Daemon stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}
