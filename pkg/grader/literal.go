package grader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// literalStyle captures how a target language spells JSON values.
type literalStyle struct {
	nullLit  string
	trueLit  string
	falseLit string
	key      func(string) string
}

var pythonStyle = literalStyle{
	nullLit:  "None",
	trueLit:  "True",
	falseLit: "False",
	key:      quoteString,
}

var javascriptStyle = literalStyle{
	nullLit:  "null",
	trueLit:  "true",
	falseLit: "false",
	key: func(k string) string {
		// A plain "__proto__" key in an object literal replaces the prototype.
		if k == "__proto__" {
			return "[" + quoteString(k) + "]"
		}
		return quoteString(k)
	},
}

func styleFor(lang Language) (literalStyle, error) {
	switch lang {
	case Python:
		return pythonStyle, nil
	case JavaScript:
		return javascriptStyle, nil
	}
	return literalStyle{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
}

// Literal renders one JSON document as a source literal of lang. Number text and
// object key order are kept as written.
func Literal(lang Language, raw json.RawMessage) (string, error) {
	style, err := styleFor(lang)
	if err != nil {
		return "", err
	}
	return encodeLiteral(raw, style)
}

func encodeLiteral(raw []byte, style literalStyle) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var b strings.Builder
	if err := writeLiteral(dec, &b, style); err != nil {
		return "", err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("trailing data after json value")
	}
	return b.String(), nil
}

func writeLiteral(dec *json.Decoder, b *strings.Builder, style literalStyle) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read json token: %w", err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '[':
			b.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				if err := writeLiteral(dec, b, style); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return fmt.Errorf("read json token: %w", err)
			}
			b.WriteByte(']')
		case '{':
			b.WriteByte('{')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				keyTok, err := dec.Token()
				if err != nil {
					return fmt.Errorf("read json token: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("unexpected object key %v", keyTok)
				}
				b.WriteString(style.key(key))
				b.WriteString(": ")
				if err := writeLiteral(dec, b, style); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return fmt.Errorf("read json token: %w", err)
			}
			b.WriteByte('}')
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		b.WriteString(quoteString(v))
	case json.Number:
		b.WriteString(v.String())
	case bool:
		if v {
			b.WriteString(style.trueLit)
		} else {
			b.WriteString(style.falseLit)
		}
	case nil:
		b.WriteString(style.nullLit)
	default:
		return fmt.Errorf("unexpected json token %T", tok)
	}
	return nil
}

// quoteString produces a double quoted literal using JSON escapes, which
// Python and JavaScript both read back verbatim.
func quoteString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}
