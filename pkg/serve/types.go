package serve

import (
	"encoding/json"

	"github.com/korniloval/fierix/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "match" | "match_batch" | "include" | "exclude" | "remove" | "scan_class" | "close"
	Payload json.RawMessage `json:"payload"`
}

// MatchPayload asks whether a method is instrumented. Parameters may be
// omitted (or null) when unknown; Descriptor takes precedence when set.
type MatchPayload struct {
	Class      string   `json:"class"`
	Method     string   `json:"method"`
	Parameters []string `json:"parameters"`
	Descriptor string   `json:"descriptor,omitempty"`
}

// MatchBatchPayload is the payload for "match_batch" requests
type MatchBatchPayload struct {
	Items []MatchPayload `json:"items"`
}

// RulesPayload carries rules in rule notation for "include", "exclude" and
// "remove" requests.
type RulesPayload struct {
	Rules []string `json:"rules"`
}

// ScanClassPayload is the payload for "scan_class" requests. Content is the
// class file, base64 encoded as usual for JSON bytes.
type ScanClassPayload struct {
	Content []byte `json:"content"`
	Source  string `json:"source"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version string `json:"version"`
}

// MatchData answers a match request. Rule is the first including rule that
// selects the method; CaptureParameters lists the indexes it marks with '+'.
type MatchData struct {
	Instrumented      bool   `json:"instrumented"`
	Rule              string `json:"rule,omitempty"`
	SaveReturnValue   bool   `json:"save_return_value"`
	CaptureParameters []int  `json:"capture_parameters,omitempty"`
}

// RulesData reports the configuration size after an edit.
type RulesData struct {
	Changed   int `json:"changed"`
	Including int `json:"including"`
	Excluding int `json:"excluding"`
}

// ScanClassData lists the selected methods of one class file.
type ScanClassData struct {
	Matches []*types.Match `json:"matches"`
}
