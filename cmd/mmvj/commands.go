//go:build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/device/midi"
	"github.com/leosat/MMVJ/internal/device/pointer"
)

func enumMIDICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enum-midi",
		Short: "list visible MIDI input ports",
		Run: func(*cobra.Command, []string) {
			ports := midi.Ports()
			if len(ports) == 0 {
				fmt.Println("no MIDI input ports")
				return
			}
			for _, name := range ports {
				fmt.Println(name)
			}
		},
	}
}

func monitorMIDICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor-midi <name-regex>",
		Short: "print messages from MIDI ports matching the regex",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			stop, err := midi.Monitor(args[0], func(port, line string) {
				fmt.Printf("%s: %s\n", port, line)
			})
			if err != nil {
				return err
			}
			defer stop()
			waitForInterrupt()
			return nil
		},
	}
}

func midiLearnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "midi-learn",
		Short: "print the config control literal of incoming MIDI messages, skipping repeats",
		RunE: func(*cobra.Command, []string) error {
			last := ""
			stop, err := midi.Learn(func(port, literal string) {
				if literal == last {
					return
				}
				last = literal
				fmt.Printf("%s: %s\n", port, literal)
			})
			if err != nil {
				return err
			}
			defer stop()
			fmt.Println("move a control; press ctrl-c to finish")
			waitForInterrupt()
			return nil
		},
	}
}

func enumMiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enum-mice",
		Short: "list visible pointer devices",
		RunE: func(*cobra.Command, []string) error {
			infos, err := pointer.Enumerate()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("no readable pointer devices (check /dev/input permissions)")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%s  %s\n", info.Path, info.Name)
			}
			return nil
		},
	}
}

func monitorMouseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor-mouse [name-regex]",
		Short: "print raw events from matching pointer devices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return pointer.Monitor(ctx, pattern, func(dev, line string) {
				fmt.Printf("%s: %s\n", dev, line)
			})
		},
	}
}

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "check the configuration file and exit",
		Run: func(*cobra.Command, []string) {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitBadConfig)
			}
			fmt.Printf("%s: ok (%d mappings, %d joysticks)\n",
				flagConfig, len(cfg.Mappings), len(cfg.VirtualJoysticks))
		},
	}
}

func waitForInterrupt() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
}
