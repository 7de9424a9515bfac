package paymentsense

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field is one name/value pair of a gateway request
type Field struct {
	Name  string
	Value string
}

// FieldSet is an ordered set of request fields. The order is significant:
// the hosted form digest is computed over the fields in insertion order.
type FieldSet struct {
	fields []Field
	index  map[string]int
}

// NewFieldSet creates an empty field set
func NewFieldSet() *FieldSet {
	return &FieldSet{index: make(map[string]int)}
}

// Set appends a field, or replaces the value in place when it already exists
func (s *FieldSet) Set(name, value string) *FieldSet {
	if i, ok := s.index[name]; ok {
		s.fields[i].Value = value
		return s
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, Field{Name: name, Value: value})
	return s
}

// SetPtr sets a field from an optional value; nil becomes ""
func (s *FieldSet) SetPtr(name string, value *string) *FieldSet {
	if value == nil {
		return s.Set(name, "")
	}
	return s.Set(name, *value)
}

// Get returns a field value or "" when the field is absent
func (s *FieldSet) Get(name string) string {
	if i, ok := s.index[name]; ok {
		return s.fields[i].Value
	}
	return ""
}

// Has reports whether the field is present
func (s *FieldSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of fields
func (s *FieldSet) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the fields in order
func (s *FieldSet) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Map returns the fields keyed by name, for templates that do not care about order
func (s *FieldSet) Map() map[string]string {
	m := make(map[string]string, len(s.fields))
	for _, f := range s.fields {
		m[f.Name] = f.Value
	}
	return m
}

// Canonical joins the fields as Name=Value pairs separated by '&', unescaped
func (s *FieldSet) Canonical() string {
	var b strings.Builder
	for i, f := range s.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Encode returns the form-urlencoded representation, preserving field order
func (s *FieldSet) Encode() string {
	var b strings.Builder
	for i, f := range s.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// Apply replaces every value with fn(name, value)
func (s *FieldSet) Apply(fn func(name, value string) string) *FieldSet {
	for i := range s.fields {
		s.fields[i].Value = fn(s.fields[i].Name, s.fields[i].Value)
	}
	return s
}

var htmlEntityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&apos;", "'",
	"&#039;", "'",
	"&amp;", "&",
)

var unsupportedCharReplacer = strings.NewReplacer(
	`"`, "`",
	"'", "`",
	`\`, "/",
	"<", "(",
	">", ")",
	"[", "(",
	"]", ")",
)

// FilterUnsupportedChars decodes the common HTML entities and replaces the
// characters the gateway rejects. The direct API additionally needs '&'
// replaced by '@'.
func FilterUnsupportedChars(value string, replaceAmpersand bool) string {
	value = htmlEntityReplacer.Replace(value)
	if replaceAmpersand {
		value = strings.ReplaceAll(value, "&", "@")
	}
	return unsupportedCharReplacer.Replace(value)
}

// maxFieldLengths are the gateway limits for free-text fields
var maxFieldLengths = map[string]int{
	"OrderDescription": 256,
	"CustomerName":     100,
	"CardName":         100,
	"Address1":         100,
	"Address2":         50,
	"Address3":         50,
	"Address4":         50,
	"City":             50,
	"State":            50,
	"PostCode":         50,
	"EmailAddress":     100,
	"PhoneNumber":      30,
}

// ApplyLengthRestrictions truncates the limited fields, silently.
// Truncation never splits a UTF-8 sequence.
func ApplyLengthRestrictions(s *FieldSet) *FieldSet {
	return s.Apply(func(name, value string) string {
		limit, ok := maxFieldLengths[name]
		if !ok {
			return value
		}
		return truncate(value, limit)
	})
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	n := 0
	for i := range value {
		if n == limit {
			return value[:i]
		}
		n++
	}
	return value
}

var numericPattern = regexp.MustCompile(`^\s*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// isNumeric accepts decimal and exponent notation
func isNumeric(s string) bool {
	return numericPattern.MatchString(s)
}
