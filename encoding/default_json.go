package encoding

import (
	stdjson "encoding/json"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	Marshal   = json.Marshal
	Unmarshal = json.Unmarshal
)

type (
	RawMessage = stdjson.RawMessage
)

// Get extracts a nested value without decoding the whole document, an empty or missing
// path yields an invalid value.
func Get(data []byte, path ...interface{}) jsoniter.Any {
	return json.Get(data, path...)
}
