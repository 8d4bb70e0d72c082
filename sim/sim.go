// Package sim generates synthetic MCMC chains with a Metropolis-Hastings
// sampler over independent normal parameters. The chains are used as
// fixtures and by the simulate command.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/stat/distuv"

	"bitbucket.org/Davydov/chaindiag/chain"
)

// log is the global logging variable.
var log = logging.MustGetLogger("sim")

// Bookkeeping keys written next to the parameters.
const (
	StepKey    = "stepnum"
	LogProbKey = "logprob"
)

// Parameter is a sampled quantity with a normal target density.
type Parameter struct {
	Name  string
	Mu    float64
	Sigma float64
	// Start is the initial value.
	Start float64
	// Step is the standard deviation of the proposal.
	Step float64

	value float64
	old   float64
}

func (p *Parameter) density() distuv.Normal {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}
}

// propose moves the parameter by a normal random step.
func (p *Parameter) propose(r *rand.Rand) {
	p.old, p.value = p.value, p.value+r.NormFloat64()*p.Step
}

// reject restores the value before the last proposal.
func (p *Parameter) reject() {
	p.value, p.old = p.old, p.value
}

// MH is a Metropolis-Hastings sampler updating all parameters jointly.
type MH struct {
	Parameters []*Parameter
	// AccPeriod is the reporting period of the acceptance rate.
	AccPeriod int

	rand *rand.Rand
}

// NewMH creates a new MH sampler.
func NewMH(pars []*Parameter, seed int64) *MH {
	return &MH{
		Parameters: pars,
		AccPeriod:  1000,
		rand:       rand.New(rand.NewSource(seed)),
	}
}

// logProb returns the log target density.
func (m *MH) logProb() (l float64) {
	for _, p := range m.Parameters {
		l += p.density().LogProb(p.value)
	}
	return
}

// Run samples iterations steps and returns the chain: one series per
// parameter plus the step number and the log density.
func (m *MH) Run(iterations int) map[string][]float64 {
	out := make(map[string][]float64, len(m.Parameters)+2)
	out[StepKey] = make([]float64, iterations)
	out[LogProbKey] = make([]float64, iterations)
	for _, p := range m.Parameters {
		p.value = p.Start
		out[p.Name] = make([]float64, iterations)
	}

	l := m.logProb()
	accepted := 0
	for i := 0; i < iterations; i++ {
		if i > 0 && m.AccPeriod > 0 && i%m.AccPeriod == 0 {
			log.Debugf("Acceptance rate %.2f%%", 100*float64(accepted)/float64(m.AccPeriod))
			accepted = 0
		}
		for _, p := range m.Parameters {
			p.propose(m.rand)
		}
		newL := m.logProb()
		a := math.Exp(newL - l)
		if a > 1 || m.rand.Float64() < a {
			l = newL
			accepted++
		} else {
			for _, p := range m.Parameters {
				p.reject()
			}
		}

		out[StepKey][i] = float64(i)
		out[LogProbKey][i] = l
		for _, p := range m.Parameters {
			out[p.Name][i] = p.value
		}
	}
	return out
}

// Settings describe a set of synthetic chain files.
type Settings struct {
	Chains     int
	Iterations int
	Location   string
	Seed       int64
	Parameters []Parameter
	// Spread shifts the start of chain i by i*Spread in every parameter.
	Spread float64
	// AccPeriod overrides the acceptance reporting period.
	AccPeriod int
}

// WriteChains runs the sampler once per chain and writes the chains to
// dir as bolt files. It returns the file names in order.
func WriteChains(dir string, s Settings) ([]string, error) {
	if s.Chains < 1 || s.Iterations < 1 {
		return nil, fmt.Errorf("need at least one chain and one iteration")
	}
	files := make([]string, s.Chains)
	for c := 0; c < s.Chains; c++ {
		pars := make([]*Parameter, len(s.Parameters))
		for i := range s.Parameters {
			p := s.Parameters[i]
			p.Start += float64(c) * s.Spread
			pars[i] = &p
		}
		m := NewMH(pars, s.Seed+int64(c))
		if s.AccPeriod > 0 {
			m.AccPeriod = s.AccPeriod
		}
		series := m.Run(s.Iterations)
		files[c] = filepath.Join(dir, fmt.Sprintf("chain_%03d.db", c))
		if err := chain.Write(files[c], s.Location, series); err != nil {
			return nil, err
		}
		log.Infof("Wrote %s (%d iterations)", files[c], s.Iterations)
	}
	return files, nil
}
