package translator

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/wizard"
)

func newTestTranslator(t *testing.T) (*Translator, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(logger), &buf
}

func TestToEngineParameters_CommonDefaults(t *testing.T) {
	tr, _ := newTestTranslator(t)

	families := []wizard.Family{
		wizard.FamilyCount,
		wizard.FamilyStatistical,
		wizard.FamilyGroupDistinct,
		wizard.FamilyThen,
		wizard.FamilyAnd,
		"UNKNOWN",
	}

	for _, family := range families {
		t.Run(string(family), func(t *testing.T) {
			params := tr.ToEngineParameters("stream-1", family, wizard.Parameters{})

			if params[wizard.KeyGrace] != int64(0) {
				t.Errorf("grace = %v, want 0", params[wizard.KeyGrace])
			}
			if params[wizard.KeyBacklog] != int64(1000) {
				t.Errorf("backlog = %v, want 1000", params[wizard.KeyBacklog])
			}
			if params[wizard.KeyTime] != int64(5) {
				t.Errorf("time = %v, want 5", params[wizard.KeyTime])
			}
			if params[wizard.KeyRepeatNotifications] != false {
				t.Errorf("repeat_notifications = %v, want false", params[wizard.KeyRepeatNotifications])
			}

			thresholdKey, typeKey := wizard.KeyThreshold, wizard.KeyThresholdType
			if family.IsCorrelation() {
				thresholdKey, typeKey = wizard.KeyMainThreshold, wizard.KeyMainThresholdType
			}
			if params[thresholdKey] != 0.0 {
				t.Errorf("%s = %v, want 0", thresholdKey, params[thresholdKey])
			}
			if v, ok := params[typeKey]; !ok || v != nil {
				t.Errorf("%s = %v (present %v), want nil", typeKey, v, ok)
			}
		})
	}
}

func TestToEngineParameters_Count(t *testing.T) {
	tr, _ := newTestTranslator(t)

	params := tr.ToEngineParameters("s", wizard.FamilyCount, wizard.Parameters{
		"time":           10,
		"threshold":      3,
		"threshold_type": "MORE",
		"grace":          1,
	})

	want := wizard.Parameters{
		"grace":                int64(1),
		"backlog":              int64(1000),
		"time":                 int64(10),
		"threshold":            3.0,
		"threshold_type":       "MORE",
		"repeat_notifications": false,
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("ToEngineParameters() = %v, want %v", params, want)
	}
}

func TestToEngineParameters_Statistical(t *testing.T) {
	tr, _ := newTestTranslator(t)

	params := tr.ToEngineParameters("s", wizard.FamilyStatistical, wizard.Parameters{"type": "AVG", "field": "bytes"})
	if params[wizard.KeyType] != "AVG" || params[wizard.KeyField] != "bytes" {
		t.Errorf("type/field = %v/%v", params[wizard.KeyType], params[wizard.KeyField])
	}

	params = tr.ToEngineParameters("s", wizard.FamilyStatistical, wizard.Parameters{})
	for _, key := range []string{wizard.KeyType, wizard.KeyField} {
		if v, ok := params[key]; !ok || v != nil {
			t.Errorf("%s = %v (present %v), want nil", key, v, ok)
		}
	}
}

func TestToEngineParameters_GroupDistinct(t *testing.T) {
	tr, _ := newTestTranslator(t)

	params := tr.ToEngineParameters("s", wizard.FamilyGroupDistinct, wizard.Parameters{
		"grouping_fields": []any{"user"},
		"comment":         "overwritten",
	})

	if got := params[wizard.KeyGroupingFields]; !reflect.DeepEqual(got, []string{"user"}) {
		t.Errorf("grouping_fields = %v", got)
	}
	if got := params[wizard.KeyDistinctionFields]; !reflect.DeepEqual(got, []string{}) {
		t.Errorf("distinction_fields = %#v, want empty", got)
	}
	if params[wizard.KeyComment] != wizard.CommentAlertWizard {
		t.Errorf("comment = %v", params[wizard.KeyComment])
	}
}

func TestToEngineParameters_Correlation(t *testing.T) {
	tr, _ := newTestTranslator(t)

	tests := []struct {
		family    wizard.Family
		wantOrder string
	}{
		{wizard.FamilyThen, "AFTER"},
		{wizard.FamilyAnd, "ANY"},
	}

	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			params := tr.ToEngineParameters("stream-2", tt.family, wizard.Parameters{
				"threshold":      7,
				"threshold_type": "LESS",
			})

			if _, ok := params[wizard.KeyThreshold]; ok {
				t.Error("threshold must be renamed to main_threshold")
			}
			if _, ok := params[wizard.KeyThresholdType]; ok {
				t.Error("threshold_type must be renamed to main_threshold_type")
			}
			if params[wizard.KeyMainThreshold] != 7.0 || params[wizard.KeyMainThresholdType] != "LESS" {
				t.Errorf("main threshold = %v %v", params[wizard.KeyMainThreshold], params[wizard.KeyMainThresholdType])
			}
			if params[wizard.KeyAdditionalThreshold] != 0.0 || params[wizard.KeyAdditionalThresholdType] != "MORE" {
				t.Errorf("additional threshold = %v %v", params[wizard.KeyAdditionalThreshold], params[wizard.KeyAdditionalThresholdType])
			}
			if params[wizard.KeyAdditionalStream] != "stream-2" {
				t.Errorf("additional_stream = %v", params[wizard.KeyAdditionalStream])
			}
			if params[wizard.KeyMessagesOrder] != tt.wantOrder {
				t.Errorf("messages_order = %v, want %s", params[wizard.KeyMessagesOrder], tt.wantOrder)
			}
			if params[wizard.KeyComment] != wizard.CommentAlertWizard {
				t.Errorf("comment = %v", params[wizard.KeyComment])
			}
			if got := params[wizard.KeyGroupingFields]; !reflect.DeepEqual(got, []string{}) {
				t.Errorf("grouping_fields = %#v, want empty", got)
			}
		})
	}
}

func TestToEngineParameters_UnknownFamily(t *testing.T) {
	tr, buf := newTestTranslator(t)

	params := tr.ToEngineParameters("s", "SEQUENCE", wizard.Parameters{"grouping_fields": []any{"x"}})

	if len(params) != 6 {
		t.Errorf("got %d keys, want the 6 common keys: %v", len(params), params)
	}
	if !strings.Contains(buf.String(), "unrecognized condition family") {
		t.Errorf("expected a debug log for the unknown family, got %q", buf.String())
	}
}

func TestConditionTypeName(t *testing.T) {
	tests := []struct {
		family wizard.Family
		want   string
	}{
		{wizard.FamilyStatistical, "field_value"},
		{wizard.FamilyGroupDistinct, "com.airbus_cyber_security.graylog.AggregationCount"},
		{wizard.FamilyThen, "com.airbus_cyber_security.graylog.CorrelationCount"},
		{wizard.FamilyAnd, "com.airbus_cyber_security.graylog.CorrelationCount"},
		{wizard.FamilyCount, "message_count"},
		{"OTHER", "message_count"},
	}

	for _, tt := range tests {
		t.Run(string(tt.family), func(t *testing.T) {
			if got := ConditionTypeName(tt.family); got != tt.want {
				t.Errorf("ConditionTypeName(%q) = %q, want %q", tt.family, got, tt.want)
			}
		})
	}
}

func TestFromEngineConfig_AggregationCount(t *testing.T) {
	tr, _ := newTestTranslator(t)

	params, err := tr.FromEngineConfig(&engine.AggregationCountConfig{
		ThresholdType:     "MORE",
		Threshold:         4,
		SearchWithinMs:    300000,
		ExecuteEveryMs:    60000,
		GroupingFields:    []string{"user"},
		DistinctionFields: nil,
	})
	if err != nil {
		t.Fatalf("FromEngineConfig() error = %v", err)
	}

	want := wizard.Parameters{
		"threshold":          4,
		"threshold_type":     "MORE",
		"time":               int64(5),
		"grace":              int64(1),
		"grouping_fields":    []string{"user"},
		"distinction_fields": []string{},
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("FromEngineConfig() = %v, want %v", params, want)
	}
}

func TestFromEngineConfig_CorrelationCount(t *testing.T) {
	tr, _ := newTestTranslator(t)

	params, err := tr.FromEngineConfig(&engine.CorrelationCountConfig{
		ThresholdType:           "MORE",
		Threshold:               2,
		AdditionalThresholdType: "LESS",
		AdditionalThreshold:     1,
		SearchWithinMs:          600000,
		ExecuteEveryMs:          120000,
	})
	if err != nil {
		t.Fatalf("FromEngineConfig() error = %v", err)
	}

	if params[wizard.KeyAdditionalThreshold] != 1 || params[wizard.KeyAdditionalThresholdType] != "LESS" {
		t.Errorf("additional threshold = %v %v", params[wizard.KeyAdditionalThreshold], params[wizard.KeyAdditionalThresholdType])
	}
	if params[wizard.KeyTime] != int64(10) || params[wizard.KeyGrace] != int64(2) {
		t.Errorf("time/grace = %v/%v, want 10/2", params[wizard.KeyTime], params[wizard.KeyGrace])
	}
	if _, ok := params[wizard.KeyDistinctionFields]; ok {
		t.Error("correlation parameters have no distinction_fields")
	}
}

func TestFromEngineConfig_Series(t *testing.T) {
	tr, _ := newTestTranslator(t)

	tests := []struct {
		name          string
		cfg           *engine.AggregationSeriesConfig
		wantThreshold float64
		wantType      any
		wantField     any
		wantDistinct  []string
	}{
		{
			name: "statistical with field",
			cfg: &engine.AggregationSeriesConfig{
				GroupBy: []string{"host"},
				Series:  []engine.Series{{ID: "a", Function: engine.FunctionAvg, Field: "bytes"}},
				Conditions: &engine.SeriesConditions{
					Expression: engine.Compare(engine.ExprGreaterEqual, engine.NumberRef("a"), engine.Number(42.5)),
				},
				SearchWithinMs: 900000,
				ExecuteEveryMs: 60000,
			},
			wantThreshold: 42.5,
			wantType:      "AVG",
			wantField:     "bytes",
			wantDistinct:  []string{"bytes"},
		},
		{
			name: "count without field",
			cfg: &engine.AggregationSeriesConfig{
				Series: []engine.Series{{ID: "c", Function: engine.FunctionCount}},
				Conditions: &engine.SeriesConditions{
					Expression: engine.Compare(engine.ExprLesser, engine.NumberRef("c"), engine.Number(3)),
				},
			},
			wantThreshold: 3,
			wantType:      "COUNT",
			wantField:     nil,
			wantDistinct:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := tr.FromEngineConfig(tt.cfg)
			if err != nil {
				t.Fatalf("FromEngineConfig() error = %v", err)
			}
			if params[wizard.KeyThreshold] != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", params[wizard.KeyThreshold], tt.wantThreshold)
			}
			if params[wizard.KeyThresholdType] != string(tt.cfg.Expression().Kind) {
				t.Errorf("threshold_type = %v", params[wizard.KeyThresholdType])
			}
			if params[wizard.KeyType] != tt.wantType {
				t.Errorf("type = %v, want %v", params[wizard.KeyType], tt.wantType)
			}
			if params[wizard.KeyField] != tt.wantField {
				t.Errorf("field = %v, want %v", params[wizard.KeyField], tt.wantField)
			}
			if !reflect.DeepEqual(params[wizard.KeyDistinctionFields], tt.wantDistinct) {
				t.Errorf("distinction_fields = %#v, want %#v", params[wizard.KeyDistinctionFields], tt.wantDistinct)
			}
		})
	}
}

func TestFromEngineConfig_LegacyStatisticalTag(t *testing.T) {
	tr, _ := newTestTranslator(t)

	cfg, err := engine.UnmarshalConfig([]byte(`{"type": "statistical", "series": [{"id": "m", "function": "max", "field": "latency"}],` +
		`"conditions": {"expression": {"expr": ">", "left": {"expr": "number-ref", "ref": "m"}, "right": {"expr": "number", "value": 200}}},` +
		`"search_within_ms": 120000, "execute_every_ms": 60000}`))
	if err != nil {
		t.Fatalf("UnmarshalConfig() error = %v", err)
	}

	params, err := tr.FromEngineConfig(cfg)
	if err != nil {
		t.Fatalf("FromEngineConfig() error = %v", err)
	}
	if params[wizard.KeyType] != "MAX" || params[wizard.KeyThreshold] != 200.0 || params[wizard.KeyTime] != int64(2) {
		t.Errorf("unexpected parameters: %v", params)
	}
}

func TestFromEngineConfig_MalformedExpression(t *testing.T) {
	tests := []struct {
		name string
		cfg  *engine.AggregationSeriesConfig
		log  string
	}{
		{
			name: "logical root",
			cfg: &engine.AggregationSeriesConfig{
				Series: []engine.Series{{ID: "a", Function: engine.FunctionSum}},
				Conditions: &engine.SeriesConditions{Expression: engine.And(
					engine.Compare(engine.ExprGreater, engine.NumberRef("a"), engine.Number(1)),
					engine.Compare(engine.ExprLesser, engine.NumberRef("a"), engine.Number(9)),
				)},
			},
			log: "cannot recover threshold from expression",
		},
		{
			name: "reference on the right",
			cfg: &engine.AggregationSeriesConfig{
				Series: []engine.Series{{ID: "a", Function: engine.FunctionSum}},
				Conditions: &engine.SeriesConditions{
					Expression: engine.Compare(engine.ExprGreater, engine.Number(1), engine.NumberRef("a")),
				},
			},
			log: "cannot recover threshold from right operand",
		},
		{
			name: "missing conditions",
			cfg: &engine.AggregationSeriesConfig{
				Series: []engine.Series{{ID: "a", Function: engine.FunctionSum}},
			},
			log: "has no condition expression",
		},
		{
			name: "missing series",
			cfg: &engine.AggregationSeriesConfig{
				Conditions: &engine.SeriesConditions{
					Expression: engine.Compare(engine.ExprGreater, engine.NumberRef("a"), engine.Number(0)),
				},
			},
			log: "has no series",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, buf := newTestTranslator(t)

			params, err := tr.FromEngineConfig(tt.cfg)
			if err != nil {
				t.Fatalf("FromEngineConfig() error = %v, want nil", err)
			}
			if params[wizard.KeyThreshold] != 0.0 {
				t.Errorf("threshold = %v, want 0", params[wizard.KeyThreshold])
			}
			if !strings.Contains(buf.String(), tt.log) {
				t.Errorf("log %q not found in %q", tt.log, buf.String())
			}
		})
	}
}

func TestFromEngineConfig_Unsupported(t *testing.T) {
	tr, _ := newTestTranslator(t)

	tests := []struct {
		name string
		cfg  engine.Config
	}{
		{"unknown tag", &engine.UnknownConfig{Tag: "sigma-v1"}},
		{"nil", nil},
		{"nil aggregation count", (*engine.AggregationCountConfig)(nil)},
		{"nil correlation count", (*engine.CorrelationCountConfig)(nil)},
		{"nil aggregation series", (*engine.AggregationSeriesConfig)(nil)},
		{"nil unknown", (*engine.UnknownConfig)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.FromEngineConfig(tt.cfg)
			if !errors.Is(err, ErrUnsupportedConfiguration) {
				t.Fatalf("FromEngineConfig() error = %v, want ErrUnsupportedConfiguration", err)
			}
			var unsupported *UnsupportedConfigError
			if !errors.As(err, &unsupported) {
				t.Errorf("error %v is not an *UnsupportedConfigError", err)
			}
		})
	}
}

type fixedStrategy struct{}

func (fixedStrategy) Tags() []string { return []string{"sigma-v1"} }

func (fixedStrategy) Parameters(cfg engine.Config) (wizard.Parameters, error) {
	return wizard.Parameters{"tag": cfg.Type()}, nil
}

func TestNew_ExtraStrategy(t *testing.T) {
	tr := New(nil, fixedStrategy{})

	if !tr.Supports("sigma-v1") || !tr.Supports(engine.TypeStatistical) {
		t.Fatal("expected built-in and extra strategies to be registered")
	}
	params, err := tr.FromEngineConfig(&engine.UnknownConfig{Tag: "sigma-v1"})
	if err != nil {
		t.Fatalf("FromEngineConfig() error = %v", err)
	}
	if params["tag"] != "sigma-v1" {
		t.Errorf("params = %v", params)
	}
}

func TestStrategy_UnexpectedType(t *testing.T) {
	_, err := aggregationCountStrategy{}.Parameters(&engine.CorrelationCountConfig{})
	if !IsUnsupported(err) {
		t.Errorf("Parameters() error = %v, want unsupported", err)
	}
}

func TestFromNotificationConfig(t *testing.T) {
	params := FromNotificationConfig(engine.LoggingNotificationConfig{
		Severity:        "high",
		LogBody:         "body",
		AggregationTime: 3,
		AlertTag:        "tag",
		SingleMessage:   true,
	})

	want := wizard.Parameters{
		"severity":            "high",
		"log_body":            "body",
		"split_fields":        []string{},
		"aggregation_time":    3,
		"alert_tag":           "tag",
		"single_notification": true,
	}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("FromNotificationConfig() = %v, want %v", params, want)
	}
}

func TestDurationConversion(t *testing.T) {
	for _, minutes := range []int64{0, 1, 5, 60, 1440} {
		if got := MillisecondsToMinutes(MinutesToMilliseconds(minutes)); got != minutes {
			t.Errorf("round trip of %d minutes = %d", minutes, got)
		}
	}

	tests := []struct {
		ms   int64
		want int64
	}{
		{59999, 0},
		{60000, 1},
		{119999, 1},
		{300000, 5},
	}
	for _, tt := range tests {
		if got := MillisecondsToMinutes(tt.ms); got != tt.want {
			t.Errorf("MillisecondsToMinutes(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}
