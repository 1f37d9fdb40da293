// Package streamjson condenses the stream-json activity log of an AI coding
// agent into one short line per meaningful event.
//
// Every input line is handled on its own. A line that is blank, not valid
// JSON, or not an object produces nothing, and so does a record whose type
// is neither "assistant" nor "result". Missing or oddly shaped fields fall
// back to defaults instead of failing. When an object repeats a key, the
// last occurrence wins.
package streamjson

import (
	"bytes"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// RecordType is the top-level discriminator of a stream-json record.
type RecordType int

const (
	RecordOther RecordType = iota
	RecordAssistant
	RecordResult
)

// ItemType is the discriminator of an assistant content item.
type ItemType int

const (
	ItemOther ItemType = iota
	ItemText
	ItemToolUse
)

// Record is one parsed input line.
type Record struct {
	root gjson.Result
}

// ParseRecord parses a single line. It returns false for blank lines,
// invalid JSON, and JSON values that are not objects.
func ParseRecord(line []byte) (Record, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Record{}, false
	}
	if !gjson.ValidBytes(trimmed) {
		return Record{}, false
	}
	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return Record{}, false
	}
	return Record{root: root}, true
}

// Type classifies the record by its "type" field.
func (r Record) Type() RecordType {
	switch stringOr(field(r.root, "type"), "") {
	case "assistant":
		return RecordAssistant
	case "result":
		return RecordResult
	default:
		return RecordOther
	}
}

// Content returns the items of message.content, or nil when the field is
// absent or not an array. Items that are not objects are dropped.
func (r Record) Content() []ContentItem {
	content := field(field(r.root, "message"), "content")
	if !content.IsArray() {
		return nil
	}
	var items []ContentItem
	content.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			items = append(items, ContentItem{value})
		}
		return true
	})
	return items
}

// ResultMessage returns the result message when it is a non-empty string.
func (r Record) ResultMessage() (string, bool) {
	message := field(r.root, "message")
	if message.Type != gjson.String || message.Str == "" {
		return "", false
	}
	return message.Str, true
}

// Cost returns cost_usd when it is present and numeric. Zero counts as present.
func (r Record) Cost() (float64, bool) {
	cost := field(r.root, "cost_usd")
	if cost.Type != gjson.Number {
		return 0, false
	}
	return cost.Num, true
}

// DurationMs returns duration_ms, or 0 when absent or not numeric.
func (r Record) DurationMs() float64 {
	return numberOr(field(r.root, "duration_ms"), 0)
}

// ContentItem is one element of an assistant message's content.
type ContentItem struct {
	value gjson.Result
}

// Type classifies the item by its "type" field.
func (c ContentItem) Type() ItemType {
	switch stringOr(field(c.value, "type"), "") {
	case "text":
		return ItemText
	case "tool_use":
		return ItemToolUse
	default:
		return ItemOther
	}
}

// Text returns the item's text field, or "" when absent or not a string.
func (c ContentItem) Text() string {
	text := field(c.value, "text")
	if text.Type != gjson.String {
		return ""
	}
	return text.Str
}

// ToolName returns the tool name, or "?" when absent.
func (c ContentItem) ToolName() string {
	return stringOr(field(c.value, "name"), "?")
}

// ToolInput returns the tool input mapping. A missing or non-object input
// behaves as an empty mapping: every lookup on it yields the default.
func (c ContentItem) ToolInput() Input {
	input := field(c.value, "input")
	if !input.IsObject() {
		return Input{}
	}
	return Input{input}
}

// Input is a tool_use input mapping.
type Input struct {
	value gjson.Result
}

// String returns the named field as a string, or def when absent.
func (in Input) String(key, def string) string {
	return stringOr(field(in.value, key), def)
}

// Array returns the named field's elements, or nil when it is not an array.
func (in Input) Array(key string) []gjson.Result {
	value := field(in.value, key)
	if !value.IsArray() {
		return nil
	}
	return value.Array()
}

// field returns the value of key in obj, taking the last occurrence when the
// key is repeated. It yields an empty result when obj is not an object.
func field(obj gjson.Result, key string) gjson.Result {
	var value gjson.Result
	if !obj.IsObject() {
		return value
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			value = v
		}
		return true
	})
	return value
}

// stringOr returns a string field's value. Absent and null fields yield def;
// other scalar and composite values are rendered as their JSON text.
func stringOr(r gjson.Result, def string) string {
	switch {
	case !r.Exists(), r.Type == gjson.Null:
		return def
	case r.Type == gjson.String:
		return r.Str
	default:
		return r.String()
	}
}

// numberOr returns a numeric field's value, or def for anything else.
func numberOr(r gjson.Result, def float64) float64 {
	if r.Type != gjson.Number {
		return def
	}
	return r.Num
}

// truncate shortens s to at most limit characters, counted as Unicode code
// points, and appends "..." when anything was cut.
func truncate(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
