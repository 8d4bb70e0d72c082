package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/Davydov/chaindiag/diag"
	"bitbucket.org/Davydov/chaindiag/sampler"
	"bitbucket.org/Davydov/chaindiag/sim"
)

var (
	simulateCmd = app.Command("simulate", "write synthetic Metropolis-Hastings chains")

	outDir     = simulateCmd.Arg("dir", "output directory").Required().String()
	nChains    = simulateCmd.Flag("chains", "number of chains").Default("4").Int()
	iterations = simulateCmd.Flag("iter", "number of iterations").Default("10000").Int()
	layout     = simulateCmd.Flag("layout", "sampler whose file layout is written").Default("aria").String()
	seed       = simulateCmd.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	spread     = simulateCmd.Flag("spread", "start of chain i is shifted by i*spread").Default("0").Float64()
	params     = simulateCmd.Flag("par", "parameter as name:mu:sigma:step, can be repeated").Strings()
	accPeriod  = simulateCmd.Flag("accept", "report acceptance rate every N iterations").Default("1000").Int()
)

// defaultParameters are written when no --par is given, named after the
// interesting keys of the layout.
var defaultParameters = map[string][]sim.Parameter{
	"stan": {
		{Name: "DmSq32", Mu: -2.5, Sigma: 0.05, Start: -2.5, Step: 0.05},
		{Name: "Th13", Mu: 0.022, Sigma: 0.001, Start: 0.022, Step: 0.001},
		{Name: "Th23", Mu: 0.55, Sigma: 0.02, Start: 0.55, Step: 0.02},
	},
	"aria": {
		{Name: "dmsq32", Mu: -2.5, Sigma: 0.05, Start: -2.5, Step: 0.05},
		{Name: "th13", Mu: 0.022, Sigma: 0.001, Start: 0.022, Step: 0.001},
		{Name: "th23", Mu: 0.55, Sigma: 0.02, Start: 0.55, Step: 0.02},
	},
}

// parseParameter reads name:mu:sigma:step.
func parseParameter(s string) (p sim.Parameter, err error) {
	fields := strings.Split(s, ":")
	if len(fields) != 4 || fields[0] == "" {
		return p, &diag.ConfigError{Msg: fmt.Sprintf("parameter %q is not name:mu:sigma:step", s)}
	}
	v := make([]float64, 3)
	for i, f := range fields[1:] {
		v[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return p, &diag.ConfigError{Key: fields[0], Msg: err.Error()}
		}
	}
	if v[1] <= 0 || v[2] <= 0 {
		return p, &diag.ConfigError{Key: fields[0], Msg: "sigma and step must be positive"}
	}
	return sim.Parameter{Name: fields[0], Mu: v[0], Sigma: v[1], Start: v[0], Step: v[2]}, nil
}

func simulate() error {
	configs, err := samplers()
	if err != nil {
		return err
	}
	cfg, err := sampler.Lookup(configs, *layout)
	if err != nil {
		return err
	}

	var pars []sim.Parameter
	for _, s := range *params {
		p, err := parseParameter(s)
		if err != nil {
			return err
		}
		pars = append(pars, p)
	}
	if len(pars) == 0 {
		pars = defaultParameters[cfg.Name]
	}
	if len(pars) == 0 {
		return &diag.ConfigError{Msg: fmt.Sprintf("no parameters for layout %s, use --par", cfg.Name)}
	}

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}
	fs, err := sim.WriteChains(*outDir, sim.Settings{
		Chains:     *nChains,
		Iterations: *iterations,
		Location:   cfg.Location,
		Seed:       *seed,
		Parameters: pars,
		Spread:     *spread,
		AccPeriod:  *accPeriod,
	})
	if err != nil {
		return err
	}
	log.Noticef("Wrote %d chain(s) in the %s layout to %s", len(fs), cfg.Name, *outDir)
	return nil
}
