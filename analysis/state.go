package analysis

import (
	"fmt"

	"bitbucket.org/Davydov/chaindiag/accept"
	"bitbucket.org/Davydov/chaindiag/acf"
	"bitbucket.org/Davydov/chaindiag/chain"
	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/hist"
	"bitbucket.org/Davydov/chaindiag/rhat"
)

// state holds the accumulators of the requested diagnostics. A nil
// accumulator is a diagnostic that was not requested or has failed.
type state struct {
	s *setup

	acf    *acf.Averager
	rhat   *rhat.Engine
	accept *accept.Tracker
	hist   *hist.Aggregator
	trace  *hist.Trace

	failed map[Diagnostic]error
	// keyFailed holds the first error of every key dropped from a
	// per-key diagnostic.
	keyFailed map[Diagnostic]map[string]error
}

func newState(s *setup) (*state, error) {
	st := &state{s: s, failed: make(map[Diagnostic]error), keyFailed: make(map[Diagnostic]map[string]error)}
	transform := func(key string) func(float64) float64 {
		return s.cfg.TransformFor(key)
	}
	var err error
	if s.requested[Autocorrelation] {
		st.acf = acf.NewAverager(s.maxLag, s.opts.Estimator)
	}
	if s.requested[RHat] {
		st.rhat = rhat.NewEngine()
	}
	if s.requested[Acceptance] {
		st.accept = new(accept.Tracker)
	}
	if s.requested[Split] {
		if st.hist, err = hist.NewAggregator(s.opts.Bins, s.keys, s.pairs, transform); err != nil {
			return nil, err
		}
	}
	if s.requested[Trace] {
		if st.trace, err = hist.NewTrace(hist.TraceXBins, hist.TraceYBins, s.keys, transform); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// fork returns empty accumulators for the diagnostics still alive,
// sharing the frozen histogram edges. Keys that already failed stay
// failed in the fork.
func (st *state) fork() *state {
	f := &state{s: st.s, failed: make(map[Diagnostic]error), keyFailed: make(map[Diagnostic]map[string]error)}
	for d, m := range st.keyFailed {
		for key, err := range m {
			f.keyFail(d, key, err)
		}
	}
	if st.acf != nil {
		f.acf = acf.NewAverager(st.acf.Lags(), st.s.opts.Estimator)
	}
	if st.rhat != nil {
		f.rhat = rhat.NewEngine()
	}
	if st.accept != nil {
		f.accept = new(accept.Tracker)
	}
	if st.hist != nil {
		f.hist = st.hist.Fork()
	}
	if st.trace != nil {
		f.trace = st.trace.Fork()
	}
	return f
}

// fail disables d after its first error.
func (st *state) fail(d Diagnostic, err error) {
	st.failed[d] = err
	switch d {
	case Autocorrelation:
		st.acf = nil
	case RHat:
		st.rhat = nil
	case Acceptance:
		st.accept = nil
	case Split:
		st.hist = nil
	case Trace:
		st.trace = nil
	}
}

// keyFail drops key from the per-key diagnostic d. The first error of
// a key is kept.
func (st *state) keyFail(d Diagnostic, key string, err error) {
	m := st.keyFailed[d]
	if m == nil {
		m = make(map[string]error)
		st.keyFailed[d] = m
	}
	if m[key] == nil {
		m[key] = err
	}
	st.drop(d, key)
}

func (st *state) drop(d Diagnostic, key string) {
	switch d {
	case Autocorrelation:
		if st.acf != nil {
			st.acf.Drop(key)
		}
	case RHat:
		if st.rhat != nil {
			st.rhat.Drop(key)
		}
	}
}

func (st *state) keyFailure(d Diagnostic, key string) error {
	return st.keyFailed[d][key]
}

// merge folds the partial results of o into st. A diagnostic that
// failed in st ignores o; a failure in o disables it in st. A key that
// failed in either is dropped from st.
func (st *state) merge(o *state) error {
	for _, d := range AllDiagnostics {
		if err := o.failed[d]; err != nil && st.failed[d] == nil {
			st.fail(d, err)
		}
	}
	for d, m := range o.keyFailed {
		for key, err := range m {
			if st.keyFailure(d, key) == nil {
				st.keyFail(d, key, err)
			}
		}
	}
	for d, m := range st.keyFailed {
		for key := range m {
			o.drop(d, key)
		}
	}
	if st.acf != nil && o.acf != nil {
		if err := st.acf.Merge(o.acf); err != nil {
			return err
		}
	}
	if st.rhat != nil && o.rhat != nil {
		st.rhat.Merge(o.rhat)
	}
	if st.accept != nil && o.accept != nil {
		st.accept.Merge(o.accept)
	}
	if st.hist != nil && o.hist != nil {
		if err := st.hist.Merge(o.hist); err != nil {
			return err
		}
	}
	if st.trace != nil && o.trace != nil {
		if err := st.trace.Merge(o.trace); err != nil {
			return err
		}
	}
	return nil
}

// processFile reads the keys of one file and feeds them into the live
// accumulators. Only errors of the source are returned.
func (st *state) processFile(src chain.Source, file string, index, total int) error {
	log.Debugf("Processing %s (%d/%d)", file, index+1, total)
	c, err := src.Open(file)
	if err != nil {
		return err
	}
	defer c.Close()

	loc := st.s.cfg.Location
	raw := make(map[string][]float64, len(st.s.keys))
	for _, key := range st.s.keys {
		x, err := c.Read(loc, key)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		raw[key] = x
	}
	st.feed(file, index, total, raw)
	return nil
}

// feed runs the live diagnostics on the series of one file.
func (st *state) feed(file string, index, total int, raw map[string][]float64) {
	keys := st.s.keys
	trimmed := make(map[string][]float64, len(keys))
	var trimErr error
	for _, key := range keys {
		x, err := chain.Trim(raw[key], st.s.opts.BurnIn)
		if err != nil {
			trimErr = diag.Locate(err, file, key)
			break
		}
		trimmed[key] = x
	}
	if trimErr != nil {
		for _, d := range AllDiagnostics {
			if d.trimmed() && st.alive(d) {
				st.fail(d, trimErr)
			}
		}
	}

	if st.acf != nil {
		for _, key := range keys {
			if st.keyFailure(Autocorrelation, key) != nil {
				continue
			}
			if err := st.acf.Add(key, trimmed[key]); err != nil {
				st.keyFail(Autocorrelation, key, diag.Locate(err, file, key))
			}
		}
	}
	if st.rhat != nil {
		for _, key := range keys {
			if st.keyFailure(RHat, key) != nil {
				continue
			}
			if err := st.rhat.Add(file, key, trimmed[key]); err != nil {
				st.keyFail(RHat, key, err)
			}
		}
	}
	if st.accept != nil {
		if err := st.accept.Add(file, trimmed[keys[0]]); err != nil {
			st.fail(Acceptance, diag.Locate(err, file, keys[0]))
		}
	}
	if st.hist != nil {
		if err := st.hist.Accumulate(file, index, total, trimmed); err != nil {
			st.fail(Split, err)
		}
	}
	if st.trace != nil {
		if err := st.trace.Add(file, raw); err != nil {
			st.fail(Trace, err)
		}
	}
}

func (st *state) alive(d Diagnostic) bool {
	switch d {
	case Autocorrelation:
		return st.acf != nil
	case RHat:
		return st.rhat != nil
	case Acceptance:
		return st.accept != nil
	case Split:
		return st.hist != nil
	case Trace:
		return st.trace != nil
	}
	return false
}
