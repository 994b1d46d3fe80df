package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an identifier that the server may send either as a JSON string or a
// JSON number. It always holds the decimal string form.
type ID string

// UnmarshalJSON accepts "42" and 42.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// ScheduleNotification is the data of a schedule_notification frame.
type ScheduleNotification struct {
	PostID         ID       `json:"post_id"`
	Type           string   `json:"type"`
	Stage          string   `json:"stage,omitempty"`
	DelayDays      *int     `json:"delay_days,omitempty"`
	HoursRemaining *float64 `json:"hours_remaining,omitempty"`
	Urgency        string   `json:"urgency,omitempty"` // "low", "medium", "high"
	Message        string   `json:"message"`
}

// PipelineUpdate is the data of a pipeline_update frame.
type PipelineUpdate struct {
	PostID        ID       `json:"post_id"`
	AgentType     string   `json:"agent_type"`
	Status        string   `json:"status"` // "started", "completed", "failed"
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// SystemAlert is the data of a system_alert frame.
type SystemAlert struct {
	AlertType string `json:"alert_type"`
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"` // "info", "warning", "error"
}
