// cmd/ledctl/root.go
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"led-service/internal/board"
	"led-service/internal/config"
	"led-service/internal/model"
	"led-service/internal/protocol"
	"led-service/internal/service"
	"led-service/internal/utils"
)

// cli holds flag values and the streams commands read and write
type cli struct {
	configPath string
	verbose    bool

	port        string
	baud        int
	board       string
	on          bool
	off         bool
	rainbow     bool
	color       string
	secondColor string
	blink       string
	interval    int
	timeout     time.Duration

	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	channelOpts []protocol.ChannelOption
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	return &cli{stdin: stdin, stdout: stdout, stderr: stderr}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledctl",
		Short: "Control the LED of a microcontroller over serial",
		Long: `ledctl sends one LED action to a board running the LED firmware and
waits for its reply. When several actions are given the strongest wins:
--on, then --off, then --rainbow, then --blink, then --color.

Examples:
  ledctl --port /dev/ttyUSB0 --on
  ledctl --port /dev/ttyUSB0 --color 255,128,0
  ledctl --port /dev/ttyUSB0 --blink=green --interval 300
  ledctl --port COM3 --board arduino-uno --blink`,
		Args:          c.noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runControl,
	}

	persistent := root.PersistentFlags()
	persistent.StringVarP(&c.configPath, "config", "c", "", "path to config file")
	persistent.BoolVarP(&c.verbose, "verbose", "v", false, "log protocol traffic to stderr")
	persistent.DurationVarP(&c.timeout, "timeout", "t", 0, "how long to wait for the reply (default from config)")

	flags := root.Flags()
	flags.StringVarP(&c.port, "port", "p", "", "serial port, e.g. /dev/ttyUSB0 or COM3")
	flags.IntVarP(&c.baud, "baud", "b", 0, "baud rate (default from the board definition)")
	flags.StringVar(&c.board, "board", "", "board ID (see 'ledctl boards')")
	flags.BoolVar(&c.on, "on", false, "turn the LED on")
	flags.BoolVar(&c.off, "off", false, "turn the LED off")
	flags.BoolVar(&c.rainbow, "rainbow", false, "cycle through colors")
	flags.StringVar(&c.color, "color", "", "color name or r,g,b")
	flags.StringVar(&c.blink, "blink", "", "blink; give a color with --blink=red (a separate argument is not accepted)")
	flags.Lookup("blink").NoOptDefVal = "true"
	flags.StringVar(&c.secondColor, "second-color", "", "alternate blink color")
	flags.IntVarP(&c.interval, "interval", "i", 0, "blink or rainbow interval in ms (50-5000)")

	root.AddCommand(newBoardsCommand(c))
	root.AddCommand(newServeStdioCommand(c))

	return root
}

func (c *cli) runControl(cmd *cobra.Command, _ []string) error {
	svc, logger, err := c.setup(cmd)
	if err != nil {
		return err
	}
	defer utils.CloseLogger(logger)

	req := &model.ControlRequest{
		Board:    c.board,
		Port:     c.port,
		BaudRate: c.baud,
		Action:   c.actionRequest(cmd.Flags()),
	}

	result, err := svc.ControlLed(cmd.Context(), req)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(c.stderr, "warning: %s\n", w)
	}

	switch result.Outcome.Status {
	case model.ResponseAccepted:
		fmt.Fprintf(c.stdout, "%s -> %s\n", result.Command, result.Outcome.Payload)
		return nil
	case model.ResponseRejected:
		fmt.Fprintf(c.stderr, "warning: device rejected %s: %s\n", result.Command, result.Outcome.Payload)
	default:
		fmt.Fprintf(c.stderr, "warning: no reply to %s from %s\n", result.Command, result.Port)
	}
	return nil
}

// noArgs rejects positional arguments, pointing a stray blink color at --blink=color
func (c *cli) noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if cmd.Flags().Changed("blink") && c.blink == "true" {
		return fmt.Errorf("unexpected argument %q: give the blink color as --blink=%s", args[0], args[0])
	}
	return cobra.NoArgs(cmd, args)
}

// actionRequest builds the flag bag; only flags given on the command line count
func (c *cli) actionRequest(flags *pflag.FlagSet) model.ActionRequest {
	req := model.ActionRequest{
		On:          c.on,
		Off:         c.off,
		Rainbow:     c.rainbow,
		Color:       c.color,
		SecondColor: c.secondColor,
	}

	if flags.Changed("blink") && c.blink != "false" {
		blink := &model.BlinkFlag{}
		if c.blink != "true" {
			blink.Color = c.blink
		}
		req.Blink = blink
	}

	if flags.Changed("interval") {
		interval := c.interval
		req.Interval = &interval
	}

	return req
}

// setup loads config and builds the service every command shares
func (c *cli) setup(cmd *cobra.Command) (*service.LedService, *zap.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout carries command output and JSON-RPC responses
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "warn"
	if c.verbose {
		cfg.Logging.Level = "debug"
	}

	if cmd.Flags().Changed("timeout") {
		if c.timeout <= 0 {
			return nil, nil, fmt.Errorf("--timeout must be positive")
		}
		cfg.Led.ResponseTimeout = c.timeout
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	registry := board.NewRegistry(logger)
	board.RegisterDefaultBoards(registry, logger)
	if cfg.Led.BoardsDir != "" {
		if _, err := board.LoadDir(registry, cfg.Led.BoardsDir, logger); err != nil {
			return nil, nil, err
		}
	}

	svc := service.NewLedService(registry, cfg, logger, service.WithChannelOptions(c.channelOpts...))
	return svc, logger, nil
}
