package paymentsense

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// InfoItem is one key of an Info document. Value is a scalar or a nested Info.
type InfoItem struct {
	Value interface{}
	Key   string
}

// Info is an ordered key/value document rendered as indented text or JSON
type Info []InfoItem

// Add appends a key
func (i Info) Add(key string, value interface{}) Info {
	return append(i, InfoItem{Key: key, Value: value})
}

// Merge appends the keys of other, replacing existing keys in place
func (i Info) Merge(other Info) Info {
	out := make(Info, len(i), len(i)+len(other))
	copy(out, i)
	for _, item := range other {
		replaced := false
		for j := range out {
			if out[j].Key == item.Key {
				out[j].Value = item.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, item)
		}
	}
	return out
}

// Get returns the value stored under key
func (i Info) Get(key string) (interface{}, bool) {
	for _, item := range i {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// Text renders "key: value" lines; nested documents start on the next line
// indented by two spaces per level
func (i Info) Text() string {
	return i.text("")
}

func (i Info) text(indent string) string {
	var b strings.Builder
	for n, item := range i {
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString(item.Key)
		b.WriteString(": ")
		if nested, ok := item.Value.(Info); ok {
			b.WriteByte('\n')
			b.WriteString(nested.text(indent + "  "))
			continue
		}
		b.WriteString(scalarText(item.Value))
	}
	return b.String()
}

func scalarText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// MarshalJSON renders the document as a JSON object keeping key order
func (i Info) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for n, item := range i {
		if n > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(item.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q: %w", item.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
