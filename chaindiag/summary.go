package main

import (
	"bitbucket.org/Davydov/chaindiag/accept"
	"bitbucket.org/Davydov/chaindiag/analysis"
	"bitbucket.org/Davydov/chaindiag/hist"
	"bitbucket.org/Davydov/chaindiag/rhat"
	"bitbucket.org/Davydov/chaindiag/sampler"
)

// CallSummary describes the program call.
type CallSummary struct {
	// Version stores chaindiag version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Jobs is the number of files processed concurrently.
	Jobs int `json:"jobs"`
	// NThreads is the number of processes used.
	NThreads int `json:"nThreads"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// HistSummary is a partitioned histogram of one key.
type HistSummary struct {
	Edges  []float64                    `json:"edges"`
	Counts map[hist.Partition][]float64 `json:"counts"`
}

// KeySummary names a key. Results are stored under Key, Name is for
// display and may be shared by several keys.
type KeySummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// AnalysisSummary is storing the results of a run, by key.
type AnalysisSummary struct {
	CallSummary

	Sampler  string       `json:"sampler"`
	Location string       `json:"location"`
	Files    []string     `json:"files"`
	Keys     []KeySummary `json:"keys"`
	BurnIn   int          `json:"burnIn"`
	MaxLag   int          `json:"maxLag"`

	Autocorrelations map[string][]float64                    `json:"autocorrelations,omitempty"`
	RHat             map[string]rhat.Result                  `json:"rhat,omitempty"`
	Acceptance       *accept.Result                          `json:"acceptance,omitempty"`
	Assessment       *accept.Assessment                      `json:"assessment,omitempty"`
	Histograms       map[string]HistSummary                  `json:"histograms,omitempty"`
	Credible         map[string]map[hist.Partition][]float64 `json:"credible,omitempty"`

	// Failures maps failed diagnostics to the error message.
	Failures map[analysis.Diagnostic]string `json:"failures,omitempty"`
	// KeyFailures are the keys left out of a per-key diagnostic.
	KeyFailures map[analysis.Diagnostic]map[string]string `json:"keyFailures,omitempty"`
}

func newSummary(rep *analysis.Report) *AnalysisSummary {
	s := &AnalysisSummary{
		Sampler:          rep.Sampler.Name,
		Location:         rep.Sampler.Location,
		Files:            rep.Files,
		BurnIn:           rep.BurnIn,
		MaxLag:           rep.MaxLag,
		Autocorrelations: rep.Autocorrelations,
		RHat:             rep.RHat,
		Acceptance:       rep.Acceptance,
		Assessment:       rep.Assessment,
	}
	for _, key := range rep.Keys {
		s.Keys = append(s.Keys, KeySummary{Key: key, Name: sampler.DisplayName(key)})
	}
	if rep.Histograms != nil {
		s.Histograms = make(map[string]HistSummary)
		for _, key := range rep.Histograms.Keys() {
			hs := HistSummary{
				Edges:  rep.Histograms.Edges(key),
				Counts: make(map[hist.Partition][]float64),
			}
			for _, p := range hist.Partitions {
				if h := rep.Histograms.Hist(key, p); h != nil {
					hs.Counts[p] = h.Counts
				}
			}
			s.Histograms[key] = hs
		}
	}
	if rep.Credible != nil {
		s.Credible = make(map[string]map[hist.Partition][]float64, len(rep.Credible))
		for pair, c := range rep.Credible {
			s.Credible[pair.String()] = c
		}
	}
	if len(rep.Failures) > 0 {
		s.Failures = make(map[analysis.Diagnostic]string, len(rep.Failures))
		for d, err := range rep.Failures {
			s.Failures[d] = err.Error()
		}
	}
	for d, m := range rep.KeyFailures {
		if len(m) == 0 {
			continue
		}
		if s.KeyFailures == nil {
			s.KeyFailures = make(map[analysis.Diagnostic]map[string]string)
		}
		s.KeyFailures[d] = make(map[string]string, len(m))
		for key, err := range m {
			s.KeyFailures[d][key] = err.Error()
		}
	}
	return s
}
