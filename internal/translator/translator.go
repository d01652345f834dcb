// Package translator maps wizard alert rule parameters to event processor
// configurations and back.
//
// The forward direction turns a condition family and the wizard's raw
// parameters into the flat parameter mapping and typed configuration the
// engine stores. The reverse direction reads a stored configuration back into
// wizard parameters through one Strategy per configuration generation,
// selected by the configuration's type tag.
package translator

import (
	"fmt"
	"log/slog"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/wizard"
)

// Strategy maps one generation of engine configurations back to wizard
// parameters.
type Strategy interface {
	// Tags returns the configuration type tags the strategy handles.
	Tags() []string
	// Parameters returns the wizard parameters for cfg.
	Parameters(cfg engine.Config) (wizard.Parameters, error)
}

// Translator converts between wizard parameters and engine configurations.
// It is safe for concurrent use once constructed.
type Translator struct {
	strategies map[string]Strategy
	logger     *slog.Logger
}

// New creates a Translator with the built-in strategies for aggregation
// count, correlation count and aggregation series configurations. Extra
// strategies replace built-ins registered under the same tag.
func New(logger *slog.Logger, extra ...Strategy) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Translator{
		strategies: make(map[string]Strategy),
		logger:     logger,
	}

	t.register(aggregationCountStrategy{})
	t.register(correlationCountStrategy{})
	t.register(seriesStrategy{logger: logger})
	for _, s := range extra {
		t.register(s)
	}
	return t
}

func (t *Translator) register(s Strategy) {
	for _, tag := range s.Tags() {
		t.strategies[tag] = s
	}
}

// Supports reports whether a strategy is registered for tag.
func (t *Translator) Supports(tag string) bool {
	_, ok := t.strategies[tag]
	return ok
}

// FromEngineConfig returns the wizard parameters of a stored configuration.
// Configurations without a strategy yield an *UnsupportedConfigError.
func (t *Translator) FromEngineConfig(cfg engine.Config) (wizard.Parameters, error) {
	if cfg == nil {
		return nil, &UnsupportedConfigError{Reason: "configuration is nil"}
	}

	strategy, ok := t.strategies[cfg.Type()]
	if !ok {
		t.logger.Debug("no strategy for configuration", "type", cfg.Type())
		return nil, &UnsupportedConfigError{Tag: cfg.Type(), Reason: "no mapping strategy registered"}
	}

	params, err := strategy.Parameters(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s configuration: %w", cfg.Type(), err)
	}
	return params, nil
}
