package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"adiod/pkg/app"
	"adiod/pkg/app/config"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "driver daemon for the 8 port analog/digital bank of the controller",
		Version: app.VERSION,
		Description: "Own the ADI expander ports, layer analog calibration, edge detection and" +
			"\n legacy sensors (motor, shaft encoder, ultrasonic) on top of them," +
			"\n and expose the port states over http and mqtt.",
		UsageText: "adiod [--conf <file>] [--log error|debug|trace]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the port daemon and use the configuration file adiod.yaml" +
			"\n\t\tadiod --conf /opt/womat/adiod.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Value: "standard", Usage: "`LEVEL` defines the log level (fatal|info|warning|error|debug|trace)"},
		},
		Action: func(ctx *cli.Context) error {
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				_ = cfg.Debug.File.Close()
			}()

			a, err := app.New(cfg)
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			if err != nil {
				return err
			}

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for an os.Interrupt signal (CTRL C)
			sig := <-quit
			debug.InfoLog.Printf("Got %s signal. Aborting...", sig)

			return err
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}
