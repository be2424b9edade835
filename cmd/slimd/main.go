// Command slimd serves the SLIM acceptance-test wire protocol: it accepts
// connections, runs the handshake/frame loop on each, and dispatches
// decoded instruction batches into the fixture classes registered below.
// CLI surface grounded on the teacher's kr/kr.go urfave/cli app structure.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"github.com/urfave/cli"

	"github.com/slimfix/slimd/fixtures/valuesandsymbols"
	"github.com/slimfix/slimd/internal/adminhttp"
	"github.com/slimfix/slimd/internal/bundle"
	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/fixture"
	slimlog "github.com/slimfix/slimd/internal/log"
	"github.com/slimfix/slimd/internal/stats"
	"github.com/slimfix/slimd/internal/transport"
	"github.com/slimfix/slimd/internal/session"
	"github.com/slimfix/slimd/internal/version"
)

func useSyslog() bool {
	if env := os.Getenv("SLIMD_LOG_SYSLOG"); env != "" {
		return env == "true"
	}
	return false
}

var log = slimlog.SetupLogging("slimd", logging.INFO, useSyslog())

func main() {
	app := cli.NewApp()
	app.Name = "slimd"
	app.Usage = "serve the SLIM acceptance-test protocol"
	app.Version = version.Current.String()
	app.Commands = []cli.Command{
		{
			Name:  "serve",
			Usage: "listen for SLIM client connections",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "addr", Value: "127.0.0.1:8085", Usage: "address to listen on (tcp host:port, unix:/path, or pipe:\\\\.\\pipe\\name)"},
				cli.StringFlag{Name: "admin-addr", Value: "", Usage: "optional address for the /healthz and /stats HTTP endpoints"},
				cli.StringFlag{Name: "bool-style", Value: "true-false", Usage: "true-false or yes-no"},
				cli.StringFlag{Name: "stats-file", Value: "", Usage: "path to write a JSON stats snapshot to on each SIGHUP"},
				cli.StringFlag{Name: "fixture-bundle", Value: "", Usage: "s3://bucket/key of a fixture bundle to fetch before serving"},
				cli.StringFlag{Name: "fixture-bundle-region", Value: "us-east-1", Usage: "AWS region for --fixture-bundle"},
				cli.StringFlag{Name: "fixture-bundle-dest", Value: "fixture-bundle.zip", Usage: "local path to save the fetched --fixture-bundle to"},
			},
			Action: serveCommand,
		},
		{
			Name:  "version",
			Usage: "print the current version, or check for a newer release",
			Subcommands: []cli.Command{
				{
					Name:   "check",
					Usage:  "check whether a newer release is published",
					Action: versionCheckCommand,
				},
			},
			Action: versionCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func versionCommand(c *cli.Context) error {
	fmt.Println(version.Current.String())
	return nil
}

func versionCheckCommand(c *cli.Context) error {
	if version.CheckNewerAvailable(runtime.GOOS, log) {
		fmt.Println("a newer release is available")
	} else {
		fmt.Println("up to date")
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	registry := convert.NewRegistry()
	switch c.String("bool-style") {
	case "yes-no":
		registry.SetBoolStyle(convert.YesNo)
	case "true-false", "":
		registry.SetBoolStyle(convert.TrueFalse)
	default:
		return fmt.Errorf("slimd: unknown --bool-style %q", c.String("bool-style"))
	}

	fixtures := fixture.NewRegistry()
	valuesandsymbols.Register(fixtures, "examples.valuesandsymbols")
	resolver := fixture.NewCachingResolver(fixtures, 256)

	if bundleURL := c.String("fixture-bundle"); bundleURL != "" {
		bucket, key, err := bundle.ParseURL(bundleURL)
		if err != nil {
			return err
		}
		dest := c.String("fixture-bundle-dest")
		log.Noticef("slimd fetching fixture bundle %s", bundleURL)
		if err := bundle.Fetch(bundle.Source{Region: c.String("fixture-bundle-region"), Bucket: bucket, Key: key}, dest); err != nil {
			return err
		}
		log.Noticef("slimd saved fixture bundle to %s", dest)
	}

	listener, err := transport.Listen(c.String("addr"))
	if err != nil {
		return err
	}
	defer listener.Close()

	counters := stats.New(time.Now())

	if adminAddr := c.String("admin-addr"); adminAddr != "" {
		adminListener, err := transport.Listen(adminAddr)
		if err != nil {
			return err
		}
		go func() {
			if err := adminhttp.Serve(adminListener, adminhttp.NewHandler(counters)); err != nil {
				log.Errorf("admin http server stopped: %v", err)
			}
		}()
		log.Infof("slimd admin endpoints listening on %s", adminAddr)
	}

	statsFile := c.String("stats-file")
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	go func() {
		for sig := range signals {
			if sig == syscall.SIGHUP && statsFile != "" {
				if err := counters.WriteSnapshot(statsFile, time.Now(), log); err != nil {
					log.Errorf("writing stats snapshot: %v", err)
				}
				continue
			}
			log.Noticef("slimd stopping on signal %v", sig)
			listener.Close()
			os.Exit(0)
		}
	}()

	log.Noticef("slimd listening on %s", c.String("addr"))
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Errorf("accept error: %v", err)
			continue
		}
		counters.LaneOpened()
		go func() {
			defer counters.LaneClosed()
			session.Serve(conn, resolver, registry, counters, log)
		}()
	}
}
