package invocation

import "encoding/json"

// stateKeysToJSON serializes a repeated-string state-keys completion into a
// JSON array so GetStateKeys shares the same byte-value decoding path as
// every other completion (spec §4.6.3 "State": "the SDK converts it into a
// JSON string array so that all state results share one deserialization
// path").
func stateKeysToJSON(keys []string) []byte {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return []byte("[]")
	}
	return b
}

// jsonUnmarshalStrings decodes the JSON array produced by stateKeysToJSON
// back into a string slice.
func jsonUnmarshalStrings(b []byte, out *[]string) error {
	if len(b) == 0 {
		*out = nil
		return nil
	}
	return json.Unmarshal(b, out)
}
