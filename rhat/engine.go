package rhat

import "bitbucket.org/Davydov/chaindiag/diag"

// Result is the between-chain statistic of a key and the split-half
// statistic of every chain, in file order.
type Result struct {
	RHat   float64   `json:"rhat"`
	Within []float64 `json:"within"`
	Files  []string  `json:"files"`
}

// Engine collects chain summaries per key.
type Engine struct {
	keys   []string
	chains map[string][]Summary
	within map[string][]float64
	files  map[string][]string
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{
		chains: make(map[string][]Summary),
		within: make(map[string][]float64),
		files:  make(map[string][]string),
	}
}

// Add summarizes the chain of key read from file.
func (e *Engine) Add(file, key string, x []float64) error {
	w, err := WithinChain(x)
	if err != nil {
		return diag.Locate(err, file, key)
	}
	e.add(key, file, Summarize(x), w)
	return nil
}

func (e *Engine) add(key, file string, s Summary, w float64) {
	if _, ok := e.chains[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.chains[key] = append(e.chains[key], s)
	e.within[key] = append(e.within[key], w)
	e.files[key] = append(e.files[key], file)
}

// Merge appends the chains of o after the chains of e.
func (e *Engine) Merge(o *Engine) {
	for _, key := range o.keys {
		for i, s := range o.chains[key] {
			e.add(key, o.files[key][i], s, o.within[key][i])
		}
	}
}

// Keys returns keys in the order they were first added.
func (e *Engine) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Result computes the statistics of key.
func (e *Engine) Result(key string) (Result, error) {
	chains, ok := e.chains[key]
	if !ok {
		return Result{}, &diag.ShapeError{Key: key, Msg: "no chains"}
	}
	r, err := GelmanRubin(chains)
	if err != nil {
		return Result{}, diag.Locate(err, "", key)
	}
	return Result{
		RHat:   r,
		Within: append([]float64(nil), e.within[key]...),
		Files:  append([]string(nil), e.files[key]...),
	}, nil
}

// Drop removes every chain of key.
func (e *Engine) Drop(key string) {
	if _, ok := e.chains[key]; !ok {
		return
	}
	delete(e.chains, key)
	delete(e.within, key)
	delete(e.files, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i:i], e.keys[i+1:]...)
			break
		}
	}
}

// Results computes the statistics of every key. Keys whose statistic
// cannot be computed are left out of results and their error is in
// failed.
func (e *Engine) Results() (results map[string]Result, failed map[string]error) {
	results = make(map[string]Result, len(e.keys))
	for _, key := range e.keys {
		r, err := e.Result(key)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[key] = err
			continue
		}
		results[key] = r
	}
	return
}
