package pmcmeta

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SeverityOK      = "ok"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// severityRank orders severities worst-last for comparison.
var severityRank = map[string]int{
	SeverityOK:      0,
	SeverityWarning: 1,
	SeverityError:   2,
}

// StatusMessage records one applied status transition, sourced from a parsed
// destination email or a deposit-job callback.
type StatusMessage struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id,omitempty"`
	Severity   string    `json:"severity"`
	Text       string    `json:"text,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Processor  string    `json:"processor,omitempty"`
}

// SubmissionDocument is the metadata blob on a submission version: the
// message history plus the overall severity derived from it.
type SubmissionDocument struct {
	Messages []StatusMessage `json:"messages,omitempty"`
	Severity string          `json:"severity,omitempty"`
	Extra    map[string]any  `json:"-"`
}

var submissionKnownKeys = []string{"messages", "severity"}

func ParseSubmissionDocument(raw []byte) (SubmissionDocument, error) {
	doc := SubmissionDocument{}
	if len(raw) == 0 {
		return doc, nil
	}
	type alias SubmissionDocument
	var known alias
	if err := json.Unmarshal(raw, &known); err != nil {
		return doc, err
	}
	doc = SubmissionDocument(known)

	all := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &all); err != nil {
		return doc, err
	}
	for _, k := range submissionKnownKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		doc.Extra = map[string]any{}
		for k, v := range all {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return doc, err
			}
			doc.Extra[k] = val
		}
	}
	return doc, nil
}

func (d SubmissionDocument) Marshal() ([]byte, error) {
	out := map[string]any{}
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.Messages != nil {
		out["messages"] = d.Messages
	}
	if d.Severity != "" {
		out["severity"] = d.Severity
	}
	return json.Marshal(out)
}

// HasTransitionTo reports whether a recorded message already moved the
// submission to the given status. Backs the duplicate-transition check.
func (d SubmissionDocument) HasTransitionTo(status string) bool {
	for _, m := range d.Messages {
		if strings.EqualFold(strings.TrimSpace(m.ToStatus), strings.TrimSpace(status)) {
			return true
		}
	}
	return false
}

// AppendMessage inserts the message, keeps the history sorted by timestamp
// and recomputes the overall severity as the worst across all messages.
func (d *SubmissionDocument) AppendMessage(msg StatusMessage) {
	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if _, ok := severityRank[msg.Severity]; !ok {
		msg.Severity = SeverityOK
	}
	d.Messages = append(d.Messages, msg)
	sort.SliceStable(d.Messages, func(i, j int) bool {
		return d.Messages[i].Timestamp.Before(d.Messages[j].Timestamp)
	})
	d.Severity = worstSeverity(d.Messages)
}

func worstSeverity(msgs []StatusMessage) string {
	worst := SeverityOK
	for _, m := range msgs {
		if severityRank[m.Severity] > severityRank[worst] {
			worst = m.Severity
		}
	}
	return worst
}
