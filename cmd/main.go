package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"optionsmonitor/cmd/monitor"
)

var Version string

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "Options Monitor CMD"
	app.Usage = "The options monitor command line interface"

	app.Commands = []cli.Command{
		monitorCMD,
		pollCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	monitorCMD = cli.Command{
		Name:        "monitor",
		Usage:       "run the position monitor",
		Action:      monitorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the polling loop and briefing job headless, without the ops server`,
	}
	pollCMD = cli.Command{
		Name:        "poll",
		Usage:       "run one forced poll cycle",
		Action:      pollAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run a single full poll cycle bypassing the quote cache, then exit`,
	}
)

func monitorAction(_ *cli.Context) error {
	logrus.Info("Starting monitor CMD")

	runner := &monitor.Runner{}
	if err := runner.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func pollAction(_ *cli.Context) error {
	logrus.Info("Starting poll CMD")

	if err := monitor.PollOnce(); err != nil {
		logrus.WithError(err).Error("Poll cycle failed")
		return err
	}

	return nil
}
