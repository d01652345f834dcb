package translator

import (
	"fmt"
	"log/slog"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/wizard"
)

type aggregationCountStrategy struct{}

func (aggregationCountStrategy) Tags() []string {
	return []string{engine.TypeAggregationCount}
}

func (aggregationCountStrategy) Parameters(cfg engine.Config) (wizard.Parameters, error) {
	c, ok := cfg.(*engine.AggregationCountConfig)
	if !ok {
		return nil, unexpectedType(cfg)
	}
	if c == nil {
		return nil, nilConfig(cfg)
	}
	return wizard.Parameters{
		wizard.KeyThreshold:         c.Threshold,
		wizard.KeyThresholdType:     c.ThresholdType,
		wizard.KeyTime:              MillisecondsToMinutes(c.SearchWithinMs),
		wizard.KeyGrace:             MillisecondsToMinutes(c.ExecuteEveryMs),
		wizard.KeyGroupingFields:    nonNil(c.GroupingFields),
		wizard.KeyDistinctionFields: nonNil(c.DistinctionFields),
	}, nil
}

type correlationCountStrategy struct{}

func (correlationCountStrategy) Tags() []string {
	return []string{engine.TypeCorrelationCount}
}

func (correlationCountStrategy) Parameters(cfg engine.Config) (wizard.Parameters, error) {
	c, ok := cfg.(*engine.CorrelationCountConfig)
	if !ok {
		return nil, unexpectedType(cfg)
	}
	if c == nil {
		return nil, nilConfig(cfg)
	}
	return wizard.Parameters{
		wizard.KeyThreshold:               c.Threshold,
		wizard.KeyThresholdType:           c.ThresholdType,
		wizard.KeyAdditionalThreshold:     c.AdditionalThreshold,
		wizard.KeyAdditionalThresholdType: c.AdditionalThresholdType,
		wizard.KeyTime:                    MillisecondsToMinutes(c.SearchWithinMs),
		wizard.KeyGrace:                   MillisecondsToMinutes(c.ExecuteEveryMs),
		wizard.KeyGroupingFields:          nonNil(c.GroupingFields),
	}, nil
}

// seriesStrategy reads aggregation series configurations, which back both
// statistical and distinct-count rules.
type seriesStrategy struct {
	logger *slog.Logger
}

func (seriesStrategy) Tags() []string {
	return []string{engine.TypeAggregationSeries, engine.TypeStatistical}
}

func (s seriesStrategy) Parameters(cfg engine.Config) (wizard.Parameters, error) {
	c, ok := cfg.(*engine.AggregationSeriesConfig)
	if !ok {
		return nil, unexpectedType(cfg)
	}
	if c == nil {
		return nil, nilConfig(cfg)
	}

	params := wizard.Parameters{
		wizard.KeyTime:              MillisecondsToMinutes(c.SearchWithinMs),
		wizard.KeyGrace:             MillisecondsToMinutes(c.ExecuteEveryMs),
		wizard.KeyGroupingFields:    nonNil(c.GroupBy),
		wizard.KeyDistinctionFields: []string{},
		wizard.KeyThreshold:         0.0,
		wizard.KeyThresholdType:     nil,
	}

	if expr := c.Expression(); expr != nil {
		params[wizard.KeyThreshold] = recoverThreshold(expr, s.logger)
		params[wizard.KeyThresholdType] = string(expr.Kind)
	} else {
		s.logger.Warn("aggregation configuration has no condition expression", "type", c.Type())
	}

	if len(c.Series) == 0 {
		s.logger.Warn("aggregation configuration has no series", "type", c.Type())
		return params, nil
	}

	series := c.Series[0]
	params[wizard.KeyType] = series.Function.String()
	if series.Field != "" {
		params[wizard.KeyField] = series.Field
		params[wizard.KeyDistinctionFields] = []string{series.Field}
	}
	return params, nil
}

// recoverThreshold returns the literal right operand of a comparison. Any
// other shape is logged and yields 0.
func recoverThreshold(expr *engine.Expression, logger *slog.Logger) float64 {
	switch expr.Kind {
	case engine.ExprGreater, engine.ExprGreaterEqual, engine.ExprLesser,
		engine.ExprLesserEqual, engine.ExprEqual:
	default:
		logger.Error("cannot recover threshold from expression", "expr", string(expr.Kind))
		return 0
	}

	right := expr.Right
	if right == nil || right.Kind != engine.ExprNumber || right.Value == nil {
		logger.Error("cannot recover threshold from right operand", "expr", string(expr.Kind))
		return 0
	}
	return *right.Value
}

func unexpectedType(cfg engine.Config) error {
	return &UnsupportedConfigError{Tag: cfg.Type(), Reason: fmt.Sprintf("unexpected type %T", cfg)}
}

func nilConfig(cfg engine.Config) error {
	return &UnsupportedConfigError{Tag: cfg.Type(), Reason: "configuration is nil"}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
