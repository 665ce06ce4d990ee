package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type member struct {
	key   string
	value json.RawMessage
}

// item is a JSON object that keeps its key order through a round trip.
type item []member

func (it *item) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	*it = (*it)[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		*it = append(*it, member{key: key, value: raw})
	}
	_, err = dec.Token()
	return err
}

func (it item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (it item) get(key string) (json.RawMessage, bool) {
	for _, m := range it {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// set replaces the value of key or appends it.
func (it *item) set(key string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	raw := json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
	for i := range *it {
		if (*it)[i].key == key {
			(*it)[i].value = raw
			return nil
		}
	}
	*it = append(*it, member{key: key, value: raw})
	return nil
}
