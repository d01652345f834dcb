package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/translator"
	"alert-wizard/internal/wizard"
)

// streamNamespace derives stable stream IDs for rules that do not name one.
var streamNamespace = uuid.MustParse("8d1f6a2e-3c4b-4f5e-9a7d-2b6c1e0f4a93")

// streamIDs returns the IDs of the rule's streams. A stream without an ID
// gets one derived from the rule title, so repeated runs agree.
func streamIDs(rule *wizard.Rule) (string, string) {
	id := func(s *wizard.RuleStream, role string) string {
		if s == nil {
			return ""
		}
		if s.ID != "" {
			return s.ID
		}
		return uuid.NewSHA1(streamNamespace, []byte(role+":"+rule.Title)).String()
	}
	return id(rule.Stream, "stream"), id(rule.SecondStream, "second_stream")
}

func loadRules(path string, defaults wizard.RuleDefaults) ([]*wizard.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rules, err := wizard.ParseRulesWith(data, defaults)
	if err != nil {
		return nil, err
	}
	return wizard.NormalizeImported(rules), nil
}

func runValidate(out io.Writer, paths []string, defaults wizard.RuleDefaults, verbose bool) int {
	files, invalidFiles := expandPaths(out, paths)
	validFiles := 0

	for _, path := range files {
		rules, err := loadRules(path, defaults)
		if err != nil {
			fmt.Fprintf(out, "  FAIL  %s: %v\n", path, err)
			invalidFiles++
			continue
		}
		validFiles++
		fmt.Fprintf(out, "  OK    %s (%d rule(s))\n", path, len(rules))

		if verbose {
			for _, rule := range rules {
				fmt.Fprintf(out, "        - %s (condition=%s, severity=%s)\n",
					rule.Title, rule.ConditionType, rule.Severity)
				if n := len(rule.Stream.FieldRules); n > 0 {
					fmt.Fprintf(out, "          field rules: %d, matching %s\n", n, rule.Stream.MatchingType)
				}
				if rule.SecondStream != nil {
					fmt.Fprintf(out, "          second stream: %d field rule(s)\n", len(rule.SecondStream.FieldRules))
				}
			}
		}
	}

	fmt.Fprintf(out, "\nResults: %d files checked, %d valid, %d invalid\n",
		validFiles+invalidFiles, validFiles, invalidFiles)

	if invalidFiles > 0 {
		return 1
	}
	return 0
}

// translation is what translate prints for one rule.
type translation struct {
	Title         string            `json:"title" yaml:"title"`
	ConditionType string            `json:"condition_type" yaml:"condition_type"`
	Parameters    wizard.Parameters `json:"parameters" yaml:"parameters"`
	StreamRules   any               `json:"stream_rules" yaml:"stream_rules"`
	Config        any               `json:"config" yaml:"config"`
	Notification  wizard.Parameters `json:"notification" yaml:"notification"`
}

func translateRule(tr *translator.Translator, rule *wizard.Rule) (*translation, error) {
	streamID, secondID := streamIDs(rule)

	cfg, err := tr.BuildConfig(streamID, secondID, rule.ConditionType, rule.ConditionParameters)
	if err != nil {
		return nil, err
	}
	plainConfig, err := configDocument(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := plain(rule.Stream.StreamRules())
	if err != nil {
		return nil, err
	}

	return &translation{
		Title:         rule.Title,
		ConditionType: translator.ConditionTypeName(rule.ConditionType),
		Parameters:    tr.ToEngineParameters(streamID, rule.ConditionType, rule.ConditionParameters),
		StreamRules:   rules,
		Config:        plainConfig,
		Notification:  translator.FromNotificationConfig(rule.NotificationConfig()),
	}, nil
}

func runTranslate(out io.Writer, paths []string, defaults wizard.RuleDefaults, tr *translator.Translator, format string) int {
	files, failures := expandPaths(out, paths)

	var docs []*translation
	for _, path := range files {
		rules, err := loadRules(path, defaults)
		if err != nil {
			fmt.Fprintf(out, "  FAIL  %s: %v\n", path, err)
			failures++
			continue
		}
		for _, rule := range rules {
			doc, err := translateRule(tr, rule)
			if err != nil {
				fmt.Fprintf(out, "  FAIL  %s: %s: %v\n", path, rule.Title, err)
				failures++
				continue
			}
			docs = append(docs, doc)
		}
	}

	if len(docs) > 0 {
		if err := encode(out, format, docs); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
	}
	if failures > 0 {
		return 1
	}
	return 0
}

// readback is what readback prints for one stored configuration.
type readback struct {
	Source     string            `json:"source" yaml:"source"`
	Type       string            `json:"type" yaml:"type"`
	Parameters wizard.Parameters `json:"parameters" yaml:"parameters"`
}

// decodeConfigs reads one configuration or a JSON array of them.
func decodeConfigs(data []byte) ([]engine.Config, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		cfg, err := engine.UnmarshalConfig(data)
		if err != nil {
			return nil, err
		}
		return []engine.Config{cfg}, nil
	}

	configs := make([]engine.Config, 0, len(raw))
	for i, item := range raw {
		cfg, err := engine.UnmarshalConfig(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func runReadback(out io.Writer, paths []string, tr *translator.Translator, format string) int {
	files, failures := expandPaths(out, paths)

	var docs []readback
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "  FAIL  %s: %v\n", path, err)
			failures++
			continue
		}
		configs, err := decodeConfigs(data)
		if err != nil {
			fmt.Fprintf(out, "  FAIL  %s: %v\n", path, err)
			failures++
			continue
		}
		for i, cfg := range configs {
			source := path
			if len(configs) > 1 {
				source = fmt.Sprintf("%s[%d]", path, i)
			}
			params, err := tr.FromEngineConfig(cfg)
			if err != nil {
				fmt.Fprintf(out, "  FAIL  %s: %v\n", source, err)
				failures++
				continue
			}
			docs = append(docs, readback{Source: source, Type: cfg.Type(), Parameters: params})
		}
	}

	if len(docs) > 0 {
		if err := encode(out, format, docs); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
	}
	if failures > 0 {
		return 1
	}
	return 0
}

// configDocument returns the stored form of cfg, type tag included, as
// plain maps.
func configDocument(cfg engine.Config) (any, error) {
	data, err := engine.MarshalConfig(cfg)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// plain converts v to maps and slices through its JSON form, so both output
// formats use the JSON field names.
func plain(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encode(out io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
