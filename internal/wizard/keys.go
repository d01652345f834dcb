package wizard

// Parameters is the flat, loosely typed key/value mapping exchanged with the
// wizard front end. Key names are part of the wire format.
type Parameters map[string]any

// Parameter keys.
const (
	KeyGrace                   = "grace"
	KeyBacklog                 = "backlog"
	KeyTime                    = "time"
	KeyThreshold               = "threshold"
	KeyThresholdType           = "threshold_type"
	KeyRepeatNotifications     = "repeat_notifications"
	KeyType                    = "type"
	KeyField                   = "field"
	KeyGroupingFields          = "grouping_fields"
	KeyDistinctionFields       = "distinction_fields"
	KeyComment                 = "comment"
	KeyMainThreshold           = "main_threshold"
	KeyMainThresholdType       = "main_threshold_type"
	KeyAdditionalThreshold     = "additional_threshold"
	KeyAdditionalThresholdType = "additional_threshold_type"
	KeyAdditionalStream        = "additional_stream"
	KeyMessagesOrder           = "messages_order"
)

// Notification parameter keys.
const (
	KeySeverity           = "severity"
	KeyLogBody            = "log_body"
	KeySplitFields        = "split_fields"
	KeyAggregationTime    = "aggregation_time"
	KeyAlertTag           = "alert_tag"
	KeySingleNotification = "single_notification"
)

// CommentAlertWizard marks engine configurations generated by the wizard.
const CommentAlertWizard = "Generated by the alert wizard"

// Defaults applied when a parameter is absent.
const (
	DefaultGrace                   int64 = 0
	DefaultBacklog                 int64 = 1000
	DefaultTime                    int64 = 5
	DefaultThreshold                     = 0.0
	DefaultAdditionalThreshold           = 0.0
	DefaultAdditionalThresholdType       = "MORE"
)

// Clone returns a shallow copy of p.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
