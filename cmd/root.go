// Package cmd implements the terminology engine's command-line interface,
// grounded on the teacher's cmd/root.go: a persistent PreRun opens the
// engine at the path given as the first positional argument, every
// subcommand shares the resulting *terminology.Svc, and a signal handler
// closes it cleanly on ctrl-c. The dm+d/medicine half of the teacher's
// root command is dropped along with the medicine package (spec.md
// Non-goals exclude dose-and-medicine parsing).
package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eldrix/snomed-terminology/config"
	"github.com/eldrix/snomed-terminology/logging"
	"github.com/eldrix/snomed-terminology/terminology"
)

// engineConfig overlays environment variables onto the engine's defaults
// (spec §4.2/§6), used to seed flag defaults below so a deployment can
// configure the engine without repeating flags on every invocation.
var engineConfig = config.LoadFromEnv("SCT")

var svc *terminology.Svc
var profilecpu, indexPath, logLevel, cacheAddr, version, build string

// readWriteCommands names the subcommands that need a writable store;
// every other command opens read-only.
var readWriteCommands = map[string]bool{"import": true, "index": true, "reset": true}

// cleanExit closes the open datastore and ends CPU profile recording if
// enabled. Called on SIGTERM or when a command returns.
func cleanExit() error {
	if svc != nil {
		if err := svc.Close(); err != nil {
			return err
		}
	}
	if profilecpu != "" {
		pprof.StopCPUProfile()
	}
	return nil
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sctd",
	Short: "A SNOMED CT terminology server and command line tool",
	Long:  `sctd is a command-line SNOMED CT terminology tool and server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if profilecpu != "" {
			f, err := os.Create(profilecpu)
			if err != nil {
				log.Fatal(err)
			}
			pprof.StartCPUProfile(f)
		}
		if len(args) < 1 {
			return fmt.Errorf("must specify path to datastore")
		}

		logger := logging.Must(logging.Options{Development: true, Level: logLevel})

		readOnly := !readWriteCommands[cmd.Name()]
		options := terminology.Options{Logger: logger, Cache: terminology.CacheOptions{Addr: cacheAddr}}
		if indexPath != "" {
			options.IndexPath = indexPath
			options.IndexReadOnly = readOnly
		}

		var err error
		svc, err = terminology.New(args[0], readOnly, options)
		if err != nil {
			return fmt.Errorf("couldn't open terminology datastore: %w", err)
		}

		// Graceful cleanup on exit (ctrl-c)
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-c
			if err := cleanExit(); err != nil {
				log.Fatalf("error cleaning up: %v", err)
			}
			os.Exit(1)
		}()

		return nil
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main with version and build strings baked in via ldflags.
func Execute(versionArg string, buildArg string) {
	version = versionArg
	build = buildArg
	defer cleanExit()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		cleanExit()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilecpu, "profile-cpu", "", "write cpu profile to `file`")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "use specified `directory` for search index instead of defaulting to <data-dir>")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", engineConfig.LogLevel, "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cacheAddr, "cache-addr", engineConfig.CacheAddr, "optional redis `host:port` backing the result cache")
}
