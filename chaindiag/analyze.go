package main

import (
	"encoding/json"
	"os"
	"runtime"
	"time"

	"bitbucket.org/Davydov/chaindiag/acf"
	"bitbucket.org/Davydov/chaindiag/analysis"
	"bitbucket.org/Davydov/chaindiag/chain"
	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/render"
)

var (
	analyzeCmd = app.Command("analyze", "compute diagnostics of chain files").Default()

	files     = analyzeCmd.Arg("files", "chain files (.db, .bolt, .tsv, .txt, .traj)").Required().Strings()
	burnIn    = analyzeCmd.Flag("burnin", "number of samples to discard from the start of every chain").Default("0").Int()
	maxLag    = analyzeCmd.Flag("maxlag", "autocorrelation lag range (sampler default if 0)").Default("0").Int()
	bins      = analyzeCmd.Flag("bins", "number of histogram bins").Default("50").Int()
	estimator = analyzeCmd.Flag("estimator", "autocorrelation estimator "+
		"(fft: zero-padded spectral, naive: direct sums)").Default("fft").Enum("fft", "naive")
	diagnostics = analyzeCmd.Flag("diag", "diagnostic to compute, can be repeated "+
		"(autocorrelation, rhat, acceptance, split, trace); "+
		"all but trace by default").Enums("autocorrelation", "rhat", "acceptance", "split", "trace")
	jobs        = analyzeCmd.Flag("jobs", "number of files processed concurrently").Default("1").Int()
	samplerName = analyzeCmd.Flag("sampler", "sampler name, skips detection").String()
	jsonF       = analyzeCmd.Flag("json", "write json summary to a file").String()
	plotsDir    = analyzeCmd.Flag("plots", "write plots to a directory").String()
	plotFormat  = analyzeCmd.Flag("format", "plot file format (png, pdf, svg, ...)").Default("png").String()
	metricsF    = analyzeCmd.Flag("metrics", "write metrics in the prometheus text format to a file").String()
)

// options converts the command line into analysis options.
func options() (analysis.Options, error) {
	configs, err := samplers()
	if err != nil {
		return analysis.Options{}, err
	}
	opts := analysis.Options{
		Files:    chain.Files(*files),
		Sampler:  *samplerName,
		Samplers: configs,
		BurnIn:   *burnIn,
		MaxLag:   *maxLag,
		Bins:     *bins,
		Jobs:     *jobs,
		Reporter: diag.NewLogReporter("diag"),
	}
	if *estimator == "naive" {
		opts.Estimator = acf.Naive
	}
	for _, d := range *diagnostics {
		dd, err := analysis.ParseDiagnostic(d)
		if err != nil {
			return opts, err
		}
		opts.Diagnostics = append(opts.Diagnostics, dd)
	}
	return opts, nil
}

// logReport prints the results which are not plots.
func logReport(rep *analysis.Report) {
	for _, key := range rep.Keys {
		if r, ok := rep.RHat[key]; ok {
			log.Noticef("R-hat %s: %.5f", key, r.RHat)
			log.Infof("Within chain R-hat %s: %v", key, r.Within)
		}
	}
	if rep.Acceptance != nil {
		log.Noticef("Total step acceptance: %.2f%%", rep.Acceptance.Total)
		for i, c := range rep.Acceptance.Chains {
			log.Infof("Step acceptance %s: %.2f%%", c.File, rep.Acceptance.PerChain[i])
		}
	}
	for _, pair := range rep.Pairs {
		for part, thr := range rep.Credible[pair] {
			log.Debugf("Credible thresholds %s (%s): %v", pair, part, thr)
		}
	}
}

func analyze() error {
	startTime := time.Now()
	opts, err := options()
	if err != nil {
		return err
	}
	log.Infof("Analysing %d chain file(s) with %d job(s)", len(opts.Files), opts.Jobs)

	rep, err := analysis.Run(chain.Default, opts)
	if err != nil {
		return err
	}
	logReport(rep)

	if *plotsDir != "" {
		r, err := render.New(*plotsDir, *plotFormat)
		if err != nil {
			return err
		}
		if _, err := r.Report(rep); err != nil {
			log.Error("Error writing plots:", err)
		}
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	if *metricsF != "" {
		if err := writeMetrics(*metricsF, rep, deltaT); err != nil {
			log.Error("Error writing metrics:", err)
		}
	}

	// output summary in json format
	if *jsonF != "" {
		summary := newSummary(rep)
		summary.Version = version
		summary.CommandLine = os.Args
		summary.Jobs = opts.Jobs
		summary.NThreads = runtime.GOMAXPROCS(0)
		summary.TotalTime = deltaT.Seconds()
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			if err := os.WriteFile(*jsonF, j, 0644); err != nil {
				log.Error("Error creating json output file:", err)
			}
		}
	}
	return nil
}
