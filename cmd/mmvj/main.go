//go:build linux

// mmvj maps MIDI controllers and pointing devices onto virtual game
// controllers. The root command runs the engine against a configuration
// file; subcommands enumerate and monitor devices and validate
// configurations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/engine"
	"github.com/leosat/MMVJ/internal/ui"
	"github.com/leosat/MMVJ/internal/watch"
)

// Exit codes.
const (
	exitOK          = 0
	exitFatalInit   = 1
	exitBadConfig   = 2
	exitInterrupted = 130
)

var (
	flagConfig    string
	flagDebug     bool
	flagIndicator bool
)

func main() {
	defer gomidi.CloseDriver()

	root := &cobra.Command{
		Use:           "mmvj",
		Short:         "map MIDI and mouse input to virtual joysticks",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			runEngine(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "configuration file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.Flags().BoolVar(&flagIndicator, "enable-steering-indicator-window", false,
		"show the steering indicator window regardless of the configuration")

	root.AddCommand(
		enumMIDICmd(),
		monitorMIDICmd(),
		midiLearnCmd(),
		enumMiceCmd(),
		monitorMouseCmd(),
		validateConfigCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatalInit)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
}

func runEngine(cmd *cobra.Command) {
	log := newLogger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		log.Error().Err(err).Str("code", "ConfigInvalid").Msg("cannot start without a valid configuration")
		os.Exit(exitBadConfig)
	}

	eng := engine.New(flagConfig, log, clock.New())
	if err := eng.Start(cfg); err != nil {
		log.Error().Err(err).Msg("engine start failed")
		os.Exit(exitFatalInit)
	}

	watcher, err := watch.New(flagConfig, eng.RequestReload, log)
	if err != nil {
		log.Warn().Err(err).Msg("config watching unavailable, reload disabled")
	} else {
		defer watcher.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	showIndicator := cfg.Global.EnableSteeringIndicator
	if cmd.Flags().Changed("enable-steering-indicator-window") {
		showIndicator = flagIndicator
	}

	if showIndicator {
		// Fyne owns the main goroutine; the dispatcher runs beside it.
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = eng.Run(ctx)
		}()
		ind := ui.NewIndicator(eng.SteeringAngles)
		ind.Run()
		stop()
		<-done
	} else {
		_ = eng.Run(ctx)
	}

	if ctx.Err() != nil {
		os.Exit(exitInterrupted)
	}
	os.Exit(exitOK)
}
