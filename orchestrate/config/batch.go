package config

// BatchConfig controls concurrent execution of independent graph runs.
//
// MaxWorkers fixes the worker count; 0 sizes the pool from GOMAXPROCS,
// capped at WorkerCap and the number of items. FailFast stops scheduling
// new items after the first failure; nil means true.
type BatchConfig struct {
	MaxWorkers  int    `json:"max_workers" yaml:"max_workers"`
	WorkerCap   int    `json:"worker_cap" yaml:"worker_cap"`
	FailFastNil *bool  `json:"fail_fast,omitempty" yaml:"fail_fast,omitempty"`
	Observer    string `json:"observer" yaml:"observer"`
}

// FailFast returns the effective fail-fast setting.
func (c *BatchConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

func DefaultBatchConfig() BatchConfig {
	failFast := true
	return BatchConfig{
		MaxWorkers:  0,
		WorkerCap:   16,
		FailFastNil: &failFast,
		Observer:    "slog",
	}
}

func (c *BatchConfig) Merge(source *BatchConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
