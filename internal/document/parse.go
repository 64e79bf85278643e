package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse reads text into a reduced document tree. Empty or blank text is not
// an error: it yields a nil node.
func Parse(text string) (*Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return ParseReader(strings.NewReader(text))
}

// ParseBytes is Parse for a byte slice.
func ParseBytes(b []byte) (*Node, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	return ParseReader(bytes.NewReader(b))
}

// ParseReader parses a single JSON value from r. Trailing data after the value
// is rejected.
func ParseReader(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	top, err := parseValue(dec, "")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("document: trailing data at offset %d", dec.InputOffset())
		}
		return nil, fmt.Errorf("document: %w", err)
	}

	root := &Node{Children: []*Node{top}}
	return Reduce(root), nil
}

// parseValue consumes one value. A named scalar becomes a member node wrapping
// the leaf; named objects and arrays carry the name themselves.
func parseValue(dec *json.Decoder, name string) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("document: %w", err)
	}

	var leaf *Node
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec, name)
		case '[':
			return parseArray(dec, name)
		default:
			return nil, fmt.Errorf("document: unexpected %q at offset %d", t, dec.InputOffset())
		}
	case string:
		leaf = &Node{Scalar: &Scalar{Kind: KindString, Raw: t}}
	case json.Number:
		leaf = &Node{Scalar: &Scalar{Kind: KindNumber, Raw: t.String()}}
	case bool:
		raw := "false"
		if t {
			raw = "true"
		}
		leaf = &Node{Scalar: &Scalar{Kind: KindBool, Raw: raw}}
	case nil:
		leaf = &Node{Scalar: &Scalar{Kind: KindNull, Raw: "null"}}
	default:
		return nil, fmt.Errorf("document: unsupported token %T", tok)
	}

	if name == "" {
		return leaf, nil
	}
	return &Node{Name: name, Children: []*Node{leaf}}, nil
}

func parseObject(dec *json.Decoder, name string) (*Node, error) {
	n := &Node{Name: name}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: object key must be a string, got %v", tok)
		}
		if key == "" {
			// Unnamed children mean array elements.
			return nil, fmt.Errorf("document: empty member name at offset %d", dec.InputOffset())
		}
		child, err := parseValue(dec, key)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		n.Children = append(n.Children, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("document: %w", unexpectedEOF(err))
	}
	return n, nil
}

func parseArray(dec *json.Decoder, name string) (*Node, error) {
	n := &Node{Name: name, IsArray: true}
	for dec.More() {
		child, err := parseValue(dec, "")
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		n.Children = append(n.Children, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("document: %w", unexpectedEOF(err))
	}
	return n, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
