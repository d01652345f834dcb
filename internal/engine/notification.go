package engine

// TypeLoggingNotification is the tag of LoggingNotificationConfig.
const TypeLoggingNotification = "logging-notification"

// LoggingNotificationConfig configures the logging notification attached to
// wizard generated event definitions.
type LoggingNotificationConfig struct {
	Severity        string   `json:"severity" yaml:"severity"`
	LogBody         string   `json:"log_body" yaml:"log_body"`
	SplitFields     []string `json:"split_fields" yaml:"split_fields"`
	AggregationTime int      `json:"aggregation_time" yaml:"aggregation_time"`
	AlertTag        string   `json:"alert_tag" yaml:"alert_tag"`
	SingleMessage   bool     `json:"single_notification" yaml:"single_notification"`
}

// Type returns the notification tag.
func (c *LoggingNotificationConfig) Type() string { return TypeLoggingNotification }
