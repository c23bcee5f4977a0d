package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"petsync/internal/logging"
)

// Entry is one parsed line of the daemon's JSON log.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Source    string
	Component string
	EventType string
	ActionID  string
	Fields    map[string]any
	Raw       string
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// returned with the whole line as the message so nothing is lost.
func ParseEntry(line string) Entry {
	entry := Entry{Raw: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		entry.Message = trimmed
		return entry
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		entry.Message = trimmed
		return entry
	}

	if ts, ok := takeString(fields, "ts"); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = parsed
		}
	}
	entry.Level, _ = takeString(fields, "level")
	entry.Level = strings.ToLower(entry.Level)
	entry.Message, _ = takeString(fields, "msg")
	entry.Source, _ = takeString(fields, "source")
	entry.Component, _ = takeString(fields, logging.FieldComponent)
	entry.EventType, _ = takeString(fields, logging.FieldEventType)
	entry.ActionID, _ = takeString(fields, logging.FieldActionID)
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}

func takeString(fields map[string]any, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	delete(fields, key)
	value, ok := raw.(string)
	return value, ok
}

// Format renders the entry for terminal output.
func (e Entry) Format() string {
	if e.Time.IsZero() && e.Level == "" {
		return e.Message
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	}
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	if e.ActionID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldActionID, e.ActionID)
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Fields[key])
	}
	return b.String()
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Filter selects entries. Empty fields match everything.
type Filter struct {
	MinLevel  string
	Component string
	ActionID  string
}

// Match reports whether entry passes the filter. Unparsed lines only pass
// when no field filter is set.
func (f Filter) Match(entry Entry) bool {
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		if ok {
			got, known := levelRank[entry.Level]
			if !known || got < want {
				return false
			}
		}
	}
	if f.Component != "" && !strings.EqualFold(entry.Component, f.Component) {
		return false
	}
	if f.ActionID != "" && entry.ActionID != f.ActionID {
		return false
	}
	return true
}
