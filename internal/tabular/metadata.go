package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	MaxMetadataKeys       = 50
	MaxMetadataValueRunes = 1024
)

type Field struct {
	Key   string
	Value string
}

// Metadata is an ordered string-to-string bag holding the non-feedback
// columns of a source row. It is encoded as a JSON object whose keys keep
// their column order.
type Metadata []Field

// Set appends key or overwrites an existing value. Values are truncated to
// MaxMetadataValueRunes; new keys beyond MaxMetadataKeys are dropped and
// reported with false.
func (m *Metadata) Set(key, value string) bool {
	value = truncateRunes(value, MaxMetadataValueRunes)
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return true
		}
	}
	if len(*m) >= MaxMetadataKeys {
		return false
	}
	*m = append(*m, Field{Key: key, Value: value})
	return true
}

func (m Metadata) Get(key string) (string, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, f := range m {
		keys = append(keys, f.Key)
	}
	return keys
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected JSON object, got %v", tok)
	}

	out := Metadata{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			// Non-string values written by older rows are kept verbatim.
			s = string(raw)
		}
		out = append(out, Field{Key: key, Value: s})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
