// Package analysis runs the convergence diagnostics over a set of chain
// files. Every file is opened once; the samples it holds are fed into
// the requested diagnostics and the file is closed before the next one
// is opened.
package analysis

import (
	"fmt"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/Davydov/chaindiag/accept"
	"bitbucket.org/Davydov/chaindiag/acf"
	"bitbucket.org/Davydov/chaindiag/chain"
	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/hist"
	"bitbucket.org/Davydov/chaindiag/rhat"
	"bitbucket.org/Davydov/chaindiag/sampler"
)

// log is the global logging variable.
var log = logging.MustGetLogger("analysis")

// DefaultBins is the number of histogram bins per key.
const DefaultBins = 50

// Diagnostic names a diagnostic.
type Diagnostic string

const (
	Autocorrelation Diagnostic = "autocorrelation"
	RHat            Diagnostic = "rhat"
	Acceptance      Diagnostic = "acceptance"
	// Split is the partitioned histograms with their credible
	// thresholds.
	Split Diagnostic = "split"
	Trace Diagnostic = "trace"
)

// AllDiagnostics lists every diagnostic.
var AllDiagnostics = []Diagnostic{Autocorrelation, RHat, Acceptance, Split, Trace}

// DefaultDiagnostics is used when no diagnostic is requested.
var DefaultDiagnostics = []Diagnostic{Autocorrelation, RHat, Acceptance, Split}

// ParseDiagnostic converts a name into a Diagnostic.
func ParseDiagnostic(s string) (Diagnostic, error) {
	for _, d := range AllDiagnostics {
		if string(d) == s {
			return d, nil
		}
	}
	return "", &diag.ConfigError{Msg: fmt.Sprintf("unknown diagnostic %q", s)}
}

// trimmed reports whether the diagnostic works on burn-in trimmed data.
func (d Diagnostic) trimmed() bool {
	return d != Trace
}

// Options control a run.
type Options struct {
	// Files are the chain files; other paths are skipped.
	Files []string
	// Sampler forces a sampler by name instead of detecting it.
	Sampler string
	// Samplers are the known definitions, Builtin if empty.
	Samplers []sampler.Config
	BurnIn   int
	// MaxLag is the autocorrelation lag range, the sampler default
	// if zero.
	MaxLag int
	// Bins is the histogram bins per key, DefaultBins if zero.
	Bins int
	// Levels are the credible levels, hist.Sigma if empty.
	Levels    []float64
	Estimator acf.Estimator
	// Diagnostics to compute, DefaultDiagnostics if empty.
	Diagnostics []Diagnostic
	// Jobs is the number of files processed concurrently.
	Jobs     int
	Reporter diag.Reporter
}

// Report holds the results of a run. Results of failed diagnostics are
// missing and the error is in Failures. Autocorrelation and R-hat are
// computed per key: a key that fails is missing from the results of
// the diagnostic and its error is in KeyFailures, the other keys carry
// on. The diagnostic itself fails only if no key is left.
type Report struct {
	Sampler sampler.Config
	Files   []string
	Keys    []string
	Pairs   []sampler.Pair
	BurnIn  int
	MaxLag  int

	Autocorrelations map[string][]float64
	RHat             map[string]rhat.Result
	Acceptance       *accept.Result
	Assessment       *accept.Assessment
	Histograms       *hist.Aggregator
	Credible         map[sampler.Pair]map[hist.Partition][]float64
	Traces           *hist.Trace

	Failures    map[Diagnostic]error
	KeyFailures map[Diagnostic]map[string]error
}

// Failed reports whether d was requested and failed.
func (r *Report) Failed(d Diagnostic) bool {
	return r.Failures[d] != nil
}

// KeyFailure returns the error of key in diagnostic d, nil if the key
// has a result or d was not computed per key.
func (r *Report) KeyFailure(d Diagnostic, key string) error {
	return r.KeyFailures[d][key]
}

func (r *Report) keyFail(d Diagnostic, key string, err error) {
	if r.KeyFailures[d] == nil {
		r.KeyFailures[d] = make(map[string]error)
	}
	r.KeyFailures[d][key] = err
}

// noKeysLeft fails d with the error of the first key, in key order,
// when every key failed.
func (r *Report) noKeysLeft(d Diagnostic, results int) {
	if results > 0 || len(r.KeyFailures[d]) == 0 {
		return
	}
	for _, key := range r.Keys {
		if err := r.KeyFailures[d][key]; err != nil {
			r.Failures[d] = err
			return
		}
	}
}

// setup is the configuration shared by all files of a run.
type setup struct {
	opts      Options
	cfg       sampler.Config
	keys      []string
	pairs     []sampler.Pair
	maxLag    int
	files     []string
	requested map[Diagnostic]bool
}

func prepare(src chain.Source, opts Options) (*setup, error) {
	s := &setup{opts: opts, requested: make(map[Diagnostic]bool)}
	s.files = chain.Files(opts.Files)
	if len(s.files) == 0 {
		return nil, &diag.ConfigError{Msg: "no chain files"}
	}
	if opts.BurnIn < 0 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("negative burn-in %d", opts.BurnIn)}
	}
	if err := hist.CheckLevels(s.opts.Levels); err != nil {
		return nil, err
	}
	if s.opts.Bins < 1 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("%d bins", s.opts.Bins)}
	}
	for _, d := range s.opts.Diagnostics {
		if _, err := ParseDiagnostic(string(d)); err != nil {
			return nil, err
		}
		s.requested[d] = true
	}

	c, err := src.Open(s.files[0])
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if opts.Sampler != "" {
		s.cfg, err = sampler.Lookup(s.opts.Samplers, opts.Sampler)
		if err != nil {
			return nil, err
		}
	} else {
		det := sampler.Detect(c, s.opts.Samplers)
		if !det.Found {
			return nil, &diag.ConfigError{File: s.files[0], Msg: "unknown sampler: no known location found"}
		}
		s.cfg = det.Config
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Sampler %s, location %s", s.cfg.Name, s.cfg.Location)

	all, err := c.Keys(s.cfg.Location)
	if err != nil {
		return nil, diag.Locate(err, s.files[0], "")
	}
	s.keys = s.cfg.Keys(all)
	if len(s.keys) == 0 {
		return nil, &diag.ConfigError{File: s.files[0], Msg: "no keys to analyse"}
	}
	s.pairs = s.cfg.Pairs(s.keys)
	s.maxLag = opts.MaxLag
	if s.maxLag == 0 {
		s.maxLag = s.cfg.MaxLag
	}
	if s.maxLag < 1 {
		return nil, &diag.ConfigError{Msg: fmt.Sprintf("max lag %d", s.maxLag)}
	}
	log.Debugf("Keys: %v", s.keys)
	return s, nil
}

// Run computes the requested diagnostics over the chain files of opts.
// Options and source errors abort the run and are returned; a
// diagnostic failing on some file is recorded in Report.Failures and
// the other diagnostics carry on.
func Run(src chain.Source, opts Options) (*Report, error) {
	if len(opts.Samplers) == 0 {
		opts.Samplers = sampler.Builtin()
	}
	if opts.Bins == 0 {
		opts.Bins = DefaultBins
	}
	if len(opts.Levels) == 0 {
		opts.Levels = hist.Sigma
	}
	if len(opts.Diagnostics) == 0 {
		opts.Diagnostics = DefaultDiagnostics
	}
	if opts.Estimator == nil {
		opts.Estimator = acf.Spectral
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.Discard
	}

	s, err := prepare(src, opts)
	if err != nil {
		return nil, err
	}

	if opts.BurnIn == 0 {
		var ds []string
		for _, d := range opts.Diagnostics {
			if d.trimmed() {
				ds = append(ds, string(d))
			}
		}
		if len(ds) > 0 {
			opts.Reporter.Report(diag.Event{
				Severity: diag.Warning,
				Message:  "burn-in is 0, results may be unreliable",
				Context:  map[string]interface{}{"diagnostics": ds},
			})
		}
	}

	acc, err := newState(s)
	if err != nil {
		return nil, err
	}
	if err := s.fold(src, acc); err != nil {
		return nil, err
	}
	return s.report(acc), nil
}

// fold processes every file and merges the partial results into acc in
// file order. The first file is processed alone since it freezes the
// histogram edges.
func (s *setup) fold(src chain.Source, acc *state) error {
	n := len(s.files)
	first := acc.fork()
	if err := first.processFile(src, s.files[0], 0, n); err != nil {
		return err
	}
	if err := acc.merge(first); err != nil {
		return err
	}

	if s.opts.Jobs == 1 {
		for i := 1; i < n; i++ {
			part := acc.fork()
			if err := part.processFile(src, s.files[i], i, n); err != nil {
				return err
			}
			if err := acc.merge(part); err != nil {
				return err
			}
		}
		return nil
	}

	parts := make([]*state, n)
	for i := 1; i < n; i++ {
		parts[i] = acc.fork()
	}
	var g errgroup.Group
	g.SetLimit(s.opts.Jobs)
	for i := 1; i < n; i++ {
		i := i
		g.Go(func() error {
			return parts[i].processFile(src, s.files[i], i, n)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := 1; i < n; i++ {
		if err := acc.merge(parts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *setup) report(acc *state) *Report {
	r := &Report{
		Sampler:  s.cfg,
		Files:    s.files,
		Keys:     s.keys,
		Pairs:    s.pairs,
		BurnIn:   s.opts.BurnIn,
		MaxLag:   s.maxLag,
		Failures:    make(map[Diagnostic]error),
		KeyFailures: make(map[Diagnostic]map[string]error),
	}
	for d, err := range acc.failed {
		r.Failures[d] = err
	}
	for _, d := range []Diagnostic{Autocorrelation, RHat} {
		if !acc.alive(d) {
			continue
		}
		for key, err := range acc.keyFailed[d] {
			r.keyFail(d, key, err)
		}
	}

	if acc.acf != nil {
		r.Autocorrelations = acc.acf.All()
		r.noKeysLeft(Autocorrelation, len(r.Autocorrelations))
		if r.Failed(Autocorrelation) {
			r.Autocorrelations = nil
		}
	}
	if acc.rhat != nil {
		res, failed := acc.rhat.Results()
		for key, err := range failed {
			r.keyFail(RHat, key, err)
		}
		r.RHat = res
		r.noKeysLeft(RHat, len(res))
		if r.Failed(RHat) {
			r.RHat = nil
		}
	}
	if acc.accept != nil {
		res, err := acc.accept.Result()
		if err != nil {
			r.Failures[Acceptance] = err
		} else {
			a := accept.Assess(res.Total, s.cfg.PerfectAcceptance)
			r.Acceptance, r.Assessment = &res, &a
			s.opts.Reporter.Report(a.Event(res.Total, s.cfg.Name))
		}
	}
	if acc.hist != nil {
		cred, err := acc.hist.Credible(s.opts.Levels)
		if err != nil {
			r.Failures[Split] = err
		} else {
			r.Histograms, r.Credible = acc.hist, cred
		}
	}
	if acc.trace != nil {
		r.Traces = acc.trace
	}
	for d, err := range r.Failures {
		log.Errorf("%s failed: %v", d, err)
	}
	for _, key := range r.Keys {
		for _, d := range []Diagnostic{Autocorrelation, RHat} {
			if err := r.KeyFailure(d, key); err != nil && !r.Failed(d) {
				log.Warningf("%s skipped for %s: %v", d, key, err)
			}
		}
	}
	return r
}
