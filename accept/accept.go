// Package accept measures the step acceptance of Metropolis-style
// chains: the share of transitions that changed the state.
package accept

import (
	"fmt"
	"math"

	"bitbucket.org/Davydov/chaindiag/diag"
)

// Tolerance is the relative distance from the target acceptance, in
// percent, beyond which sampling is considered unhealthy.
const Tolerance = 25.0

// Chain is the acceptance count of one chain.
type Chain struct {
	File     string `json:"file"`
	Accepted int    `json:"accepted"`
	Steps    int    `json:"steps"`
}

// Percent returns the acceptance of the chain in percent.
func (c Chain) Percent() float64 {
	return 100 * float64(c.Accepted) / float64(c.Steps)
}

// Tracker counts accepted steps over chains.
type Tracker struct {
	chains []Chain
}

// Count returns the number of non-zero consecutive differences of x
// and the number of differences.
func Count(x []float64) (accepted, steps int, err error) {
	if len(x) < 2 {
		return 0, 0, &diag.ShapeError{Msg: fmt.Sprintf("%d samples, need at least 2 for a step", len(x))}
	}
	for _, d := range diag.Diff(x) {
		if d != 0 {
			accepted++
		}
	}
	return accepted, len(x) - 1, nil
}

// Add counts the steps of the chain read from file.
func (t *Tracker) Add(file string, x []float64) error {
	accepted, steps, err := Count(x)
	if err != nil {
		return diag.Locate(err, file, "")
	}
	t.chains = append(t.chains, Chain{File: file, Accepted: accepted, Steps: steps})
	return nil
}

// Merge appends the chains of o.
func (t *Tracker) Merge(o *Tracker) {
	t.chains = append(t.chains, o.chains...)
}

// Result is the total and per-chain acceptance.
type Result struct {
	// Total is weighted by the number of steps of each chain.
	Total    float64   `json:"total"`
	PerChain []float64 `json:"perChain"`
	Chains   []Chain   `json:"chains"`
}

// Result returns the acceptance over all chains added so far.
func (t *Tracker) Result() (Result, error) {
	if len(t.chains) == 0 {
		return Result{}, &diag.ShapeError{Msg: "no chains"}
	}
	var accepted, steps int
	r := Result{
		PerChain: make([]float64, len(t.chains)),
		Chains:   append([]Chain(nil), t.chains...),
	}
	for i, c := range t.chains {
		accepted += c.Accepted
		steps += c.Steps
		r.PerChain[i] = c.Percent()
	}
	r.Total = 100 * float64(accepted) / float64(steps)
	return r, nil
}

// Advice tells how the proposal step size should change.
type Advice int

const (
	Keep Advice = iota
	DecreaseStep
	IncreaseStep
)

func (a Advice) String() string {
	switch a {
	case DecreaseStep:
		return "decrease step size"
	case IncreaseStep:
		return "increase step size"
	}
	return "keep step size"
}

// MarshalText implements encoding.TextMarshaler.
func (a Advice) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Assessment compares acceptance to the sampler target.
type Assessment struct {
	Target float64 `json:"target"`
	// Distance is |total-target|/target in percent.
	Distance float64 `json:"distance"`
	Healthy  bool    `json:"healthy"`
	Advice   Advice  `json:"advice"`
}

// Assess compares total acceptance (percent) with target (percent).
func Assess(total, target float64) Assessment {
	a := Assessment{
		Target:   target,
		Distance: math.Abs(total-target) / target * 100,
	}
	a.Healthy = a.Distance <= Tolerance
	switch {
	case a.Healthy:
		a.Advice = Keep
	case total < target:
		a.Advice = DecreaseStep
	default:
		a.Advice = IncreaseStep
	}
	return a
}

// Event describes the assessment as a diagnostic event.
func (a Assessment) Event(total float64, sampler string) diag.Event {
	ctx := map[string]interface{}{
		"sampler":  sampler,
		"total":    fmt.Sprintf("%.2f%%", total),
		"target":   fmt.Sprintf("%.2f%%", a.Target),
		"distance": fmt.Sprintf("%.1f%%", a.Distance),
	}
	if a.Healthy {
		return diag.Event{Severity: diag.Info, Context: ctx,
			Message: "total step acceptance is close to the target"}
	}
	ctx["advice"] = a.Advice.String()
	return diag.Event{Severity: diag.Warning, Context: ctx,
		Message: "total step acceptance is far from the target"}
}
