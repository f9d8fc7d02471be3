package app

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

var bodyLogJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const truncatedSuffix = "... [truncated]"
const maxLoggedBodyLength = 200

// truncateBody renders an arbitrary decoded JSON value (map, slice, nil) for
// a log line, truncated to maxLoggedBodyLength, matching the legacy hub's
// truncate_body helper.
func truncateBody(body interface{}) string {
	if body == nil {
		return "{}"
	}
	encoded, err := bodyLogJSON.Marshal(body)
	if err != nil {
		return truncateText(fmt.Sprintf("%v", body))
	}
	return truncateText(string(encoded))
}

// truncateText truncates an already-serialised string to
// maxLoggedBodyLength bytes. Valid JSON is first passed through gjson.Parse
// (cheap read-only inspection per SPEC_FULL.md's gjson wiring note, without
// a full struct decode), which drops leading whitespace and unquotes a bare
// JSON string but keeps objects and arrays in their raw form. The cut is by
// byte and can split a multi-byte character.
func truncateText(s string) string {
	if gjson.Valid(s) {
		s = gjson.Parse(s).String()
	}
	if len(s) <= maxLoggedBodyLength {
		return s
	}
	return s[:maxLoggedBodyLength] + truncatedSuffix
}
