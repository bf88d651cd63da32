package format

import "encoding/json"

// JSON is the self-describing textual Marshaler. It backs the Text
// format and therefore the fallback path: any peer can parse it without
// schema or format agreement. The zero value is ready to use.
type JSON struct{}

var _ Marshaler = JSON{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

func (JSON) Name() string { return "json" }
