package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dop251/objmodel"
	"github.com/dop251/objmodel/scenario"
)

var cpuprofile string
var configPath string
var logLevel string

func loadConfig() (objmodel.Config, error) {
	c, err := objmodel.LoadConfig(configPath, os.LookupEnv)
	if err != nil {
		return c, err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
		if err := c.Validate(); err != nil {
			return c, err
		}
	}
	return c, nil
}

func newLogger(c objmodel.Config) *log.Logger {
	l := log.New()
	l.SetOutput(os.Stderr)
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(level)
	}
	return l
}

func runScenarios(cmd *cobra.Command, args []string) error {
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return errors.Wrap(err, "could not create cpu profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "could not start cpu profile")
		}
		defer pprof.StopCPUProfile()
	}
	c, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(c)
	failed := 0
	for _, path := range args {
		doc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		res, err := scenario.Run(doc, c, logger.WithField("scenario", path))
		if err != nil {
			return errors.Wrapf(err, "scenario %s", path)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %s\n", path, f)
		}
		if res.Passed() {
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d steps)\n", path, res.Steps)
		} else {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}

func printConfig(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	return enc.Encode(c)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "objmodel",
		Short:        "Run object model scenarios",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides the config)")

	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Execute scenario files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScenarios,
	}
	runCmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to file")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	rootCmd.AddCommand(runCmd, configCmd)
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
