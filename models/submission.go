package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Submission is a "submission finalized" event from the form host
type Submission struct {
	EntryID json.RawMessage `json:"entry_id,omitempty"`
	Form    FormConfig      `json:"form"`
	Fields  json.RawMessage `json:"fields"`
	Entry   json.RawMessage `json:"entry,omitempty"`
	Request RequestContext  `json:"request"`
}

// FormConfig is the form configuration attached to a submission
type FormConfig struct {
	ID       json.RawMessage `json:"id"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// FormID returns the form id when it is a positive integer (number or numeric string)
func (f FormConfig) FormID() (int64, bool) {
	var text string
	switch kindOf(f.ID) {
	case '0':
		text = strings.TrimSpace(string(f.ID))
	case '"':
		if err := json.Unmarshal(f.ID, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	default:
		return 0, false
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Accept integral floats such as 7.0
		num, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || num != float64(int64(num)) {
			return 0, false
		}
		id = int64(num)
	}
	if id <= 0 {
		return 0, false
	}
	return id, true
}

// Title returns settings.form_title cast to text, or ""
func (f FormConfig) Title() string {
	if kindOf(f.Settings) != '{' {
		return ""
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(f.Settings, &settings); err != nil {
		return ""
	}
	title, _ := scalarString(settings["form_title"])
	return title
}

// RequestContext carries the request metadata of the submitting client.
// ClientIP is set only when the host resolved the client address itself.
type RequestContext struct {
	PostedPageURL string  `json:"page_url,omitempty"`
	Referrer      string  `json:"referrer,omitempty"`
	RemoteAddr    string  `json:"remote_addr,omitempty"`
	ClientIP      *string `json:"client_ip,omitempty"`
	UserAgent     string  `json:"user_agent,omitempty"`
}
