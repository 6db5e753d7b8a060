package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ptgott/repstore/record"
	"github.com/ptgott/repstore/storage"
	"github.com/ptgott/repstore/userconfig"
)

const usage = `usage: repstore [flags] <command> [fingerprint]

commands:
  get FINGERPRINT        print the stored record
  report FINGERPRINT     record one "unwanted" report
  whitelist FINGERPRINT  record one vouch
  delete FINGERPRINT     remove the record
  cleanup                purge expired records
  modes                  list engines and the concurrency modes they support

flags:
`

func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func(c chan os.Signal) {
		<-sigCh
		log.Info().Msg("interrupt: exiting")
		os.Exit(0)
	}(sigCh)

	configPath := flag.String(
		"config",
		"./config.yaml",
		"path to a JSON or YAML file containing your configuration",
	)
	level := flag.String(
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	switch *level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*configPath)

	if err != nil {
		log.Error().
			Str("config-path", *configPath).
			Err(err).
			Msg("We can't open the application config file")
		os.Exit(1)
	}

	config, err := userconfig.Parse(f)
	f.Close()

	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem parsing your config")
		os.Exit(1)
	}

	checkedConfig, err := config.CheckAndSetDefaults()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem validating your config")
		os.Exit(1)
	}

	log.Debug().Str("configPath", *configPath).Msg("successfully validated the config")

	if err := run(os.Stdout, &checkedConfig.Storage, args); err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("command failed")
		os.Exit(1)
	}
}

// run carries out a single command against the configured store.
func run(out io.Writer, c *storage.Config, args []string) error {
	factory := storage.DefaultFactory(c.Options())

	if args[0] == "modes" {
		printModes(out, factory)
		return nil
	}

	h, err := c.Open(factory)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the record store")
		}
	}()

	if args[0] == "cleanup" {
		return h.Cleanup()
	}

	if len(args) != 2 {
		return fmt.Errorf("%v takes exactly one fingerprint", args[0])
	}
	fp := args[1]

	switch args[0] {
	case "get":
		r, err := h.Get(fp)
		if err != nil {
			return err
		}
		printRecord(out, fp, r, c.MaxAge)
		return nil
	case "report", "whitelist":
		r, err := h.Get(fp)
		if err != nil {
			return err
		}
		now := time.Now()
		if args[0] == "report" {
			r.Report(now)
		} else {
			r.Whitelist(now)
		}
		if err := h.Set(fp, r); err != nil {
			return err
		}
		log.Info().
			Str("fingerprint", fp).
			Uint64("reports", r.ReportCount).
			Uint64("whitelists", r.WhitelistCount).
			Msgf("stored a %v", args[0])
		return nil
	case "delete":
		return h.Delete(fp)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printModes(out io.Writer, f *storage.Factory) {
	for _, e := range f.Engines() {
		ms := e.Modes()
		names := make([]string, len(ms))
		for i, m := range ms {
			names[i] = m.String()
		}
		s := strings.Join(names, ", ")
		if s == "" {
			s = "unavailable"
		}
		fmt.Fprintf(out, "%-8v %v\n", e.Name, s)
	}
}

func printRecord(out io.Writer, fp string, r record.Record, maxAge time.Duration) {
	ts := func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format(record.TimeLayout)
	}
	fmt.Fprintf(out, "fingerprint: %v\n", fp)
	fmt.Fprintf(out, "reports:     %v (first %v, last %v)\n", r.ReportCount, ts(r.ReportEntered), ts(r.ReportUpdated))
	fmt.Fprintf(out, "whitelists:  %v (first %v, last %v)\n", r.WhitelistCount, ts(r.WhitelistEntered), ts(r.WhitelistUpdated))
	if maxAge > 0 && !r.IsZero() {
		fmt.Fprintf(out, "expires:     %v after its last write\n", units.HumanDuration(maxAge))
	}
}
