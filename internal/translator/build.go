package translator

import (
	"strings"

	"github.com/google/uuid"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/wizard"
)

const defaultSearchQuery = "*"

// seriesNamespace derives series IDs, so one rule always builds the same
// configuration.
var seriesNamespace = uuid.MustParse("4b0e7c52-9d1a-4e36-8f2b-6a5d3c9e1f07")

// thresholdComparisons maps wizard threshold types to comparison operators.
// Operator symbols are accepted as they are.
var thresholdComparisons = map[string]engine.ExprKind{
	"MORE":          engine.ExprGreater,
	"MORE_OR_EQUAL": engine.ExprGreaterEqual,
	"LESS":          engine.ExprLesser,
	"LESS_OR_EQUAL": engine.ExprLesserEqual,
	"EQUAL":         engine.ExprEqual,
}

// BuildConfig builds the engine configuration for a wizard condition.
// COUNT and GROUP_DISTINCT produce an aggregation count, THEN and AND a
// correlation count against secondStreamID, and STATISTICAL an aggregation
// series with a single series and a comparison on it.
func (t *Translator) BuildConfig(streamID, secondStreamID string, family wizard.Family, raw wizard.Parameters) (engine.Config, error) {
	if streamID == "" {
		return nil, invalidParameters("stream is required")
	}
	c := wizard.ParseCondition(family, raw, t.logger)

	switch family {
	case wizard.FamilyCount, wizard.FamilyGroupDistinct:
		return &engine.AggregationCountConfig{
			Stream:              streamID,
			ThresholdType:       c.ThresholdType,
			Threshold:           int(c.Threshold),
			SearchWithinMs:      MinutesToMilliseconds(c.Time),
			ExecuteEveryMs:      MinutesToMilliseconds(c.Grace),
			GroupingFields:      c.GroupingFields,
			DistinctionFields:   c.DistinctionFields,
			Comment:             wizard.CommentAlertWizard,
			SearchQuery:         defaultSearchQuery,
			RepeatNotifications: c.RepeatNotifications,
		}, nil

	case wizard.FamilyThen, wizard.FamilyAnd:
		if secondStreamID == "" {
			return nil, invalidParameters("%s conditions need a second stream", family)
		}
		return &engine.CorrelationCountConfig{
			Stream:                  streamID,
			ThresholdType:           c.ThresholdType,
			Threshold:               int(c.Threshold),
			AdditionalStream:        secondStreamID,
			AdditionalThresholdType: c.AdditionalThresholdType,
			AdditionalThreshold:     int(c.AdditionalThreshold),
			MessagesOrder:           messagesOrder(family),
			SearchWithinMs:          MinutesToMilliseconds(c.Time),
			ExecuteEveryMs:          MinutesToMilliseconds(c.Grace),
			GroupingFields:          c.GroupingFields,
			Comment:                 wizard.CommentAlertWizard,
			SearchQuery:             defaultSearchQuery,
		}, nil

	case wizard.FamilyStatistical:
		return buildSeriesConfig(streamID, c)

	default:
		return nil, invalidParameters("unknown condition family %q", family)
	}
}

func buildSeriesConfig(streamID string, c wizard.Condition) (*engine.AggregationSeriesConfig, error) {
	fn, ok := engine.ParseSeriesFunction(c.StatisticalFunction)
	if !ok {
		return nil, invalidParameters("unknown statistical function %q", c.StatisticalFunction)
	}
	kind, err := comparisonKind(c.ThresholdType)
	if err != nil {
		return nil, err
	}

	series := engine.Series{
		ID:       seriesID(streamID, fn, c.StatisticalField),
		Function: fn,
		Field:    c.StatisticalField,
	}
	expr := engine.Compare(kind, engine.NumberRef(series.ID), engine.Number(c.Threshold))

	return &engine.AggregationSeriesConfig{
		Query:          defaultSearchQuery,
		Streams:        []string{streamID},
		GroupBy:        c.GroupingFields,
		Series:         []engine.Series{series},
		Conditions:     &engine.SeriesConditions{Expression: expr},
		SearchWithinMs: MinutesToMilliseconds(c.Time),
		ExecuteEveryMs: MinutesToMilliseconds(c.Grace),
	}, nil
}

func seriesID(streamID string, fn engine.SeriesFunction, field string) string {
	return uuid.NewSHA1(seriesNamespace, []byte(streamID+":"+fn.String()+":"+field)).String()
}

func comparisonKind(thresholdType string) (engine.ExprKind, error) {
	if kind, ok := thresholdComparisons[strings.ToUpper(thresholdType)]; ok {
		return kind, nil
	}
	if kind := engine.ExprKind(thresholdType); kind.IsComparison() {
		return kind, nil
	}
	return "", invalidParameters("unknown threshold type %q", thresholdType)
}
