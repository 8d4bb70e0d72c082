/*

Chaindiag computes convergence and mixing diagnostics of MCMC chains
stored in multiple chain files: autocorrelations, Gelman-Rubin R-hat
(between chains and split-half within every chain), step acceptance,
split posteriors with credible contours and trace heat maps.

The basic usage looks like this:

	chaindiag analyze --burnin 1000 chains/*.db

, this will detect the sampler from the first file and log the
results. Plots, a JSON summary and a metrics file can be requested:

	chaindiag analyze --burnin 1000 --plots plots --json summary.json chains/*.db

Synthetic chains for experiments are written with:

	chaindiag simulate --chains 4 --iter 10000 chains

To see all the options run:

	chaindiag --help

*/
package main

import (
	"fmt"
	"os"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/chaindiag/sampler"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("chaindiag")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the loggers configured by --loglevel.
var modules = []string{"chaindiag", "analysis", "chain", "sim", "render", "diag"}

// command-line options
var (
	// application
	app = kingpin.New("chaindiag", "MCMC convergence diagnostics").Version(version)

	// shared
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	samplersF = app.Flag("samplers", "YAML file with additional sampler definitions").ExistingFile()
)

// setupLogging configures the backend, the formatter and the levels.
// The returned function closes the log file.
func setupLogging() (func(), error) {
	logging.SetFormatter(formatter)
	closer := func() {}
	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return closer, fmt.Errorf("error creating log file: %w", err)
		}
		closer = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		return closer, err
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}
	return closer, nil
}

// samplers returns the built-in definitions merged with --samplers.
func samplers() ([]sampler.Config, error) {
	configs := sampler.Builtin()
	if *samplersF == "" {
		return configs, nil
	}
	extra, err := sampler.LoadFile(*samplersF)
	if err != nil {
		return nil, err
	}
	log.Infof("Read %d sampler definition(s) from %s", len(extra), *samplersF)
	return sampler.Merge(configs, extra), nil
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog, err := setupLogging()
	defer closeLog()
	if err != nil {
		log.Fatal(err)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	switch cmd {
	case analyzeCmd.FullCommand():
		err = analyze()
	case simulateCmd.FullCommand():
		err = simulate()
	}
	if err != nil {
		log.Critical(err)
		closeLog()
		os.Exit(1)
	}
}
