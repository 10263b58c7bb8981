// Package extract pulls the author name out of a listing JSON document.
//
// The expected document is an array whose first element is a listing:
//
//	[{"data": {"children": [{"data": {"author": "alice"}}]}}]
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrDecode wraps bodies that are not JSON at all.
	ErrDecode = errors.New("malformed JSON")
	// ErrShape wraps JSON that does not have the listing structure.
	ErrShape = errors.New("unexpected document shape")
)

type listing struct {
	Data *struct {
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

type child struct {
	Data *struct {
		Author json.RawMessage `json:"author"`
	} `json:"data"`
}

// Author returns the author of the first child of the first listing in body.
func Author(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return "", fmt.Errorf("%w: body is not valid JSON", ErrDecode)
	}
	if len(body) == 0 || body[0] != '[' {
		return "", fmt.Errorf("%w: top level is not an array", ErrShape)
	}

	var listings []json.RawMessage
	if err := json.Unmarshal(body, &listings); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShape, err)
	}
	if len(listings) == 0 {
		return "", fmt.Errorf("%w: empty top-level array", ErrShape)
	}

	var l listing
	if err := unmarshalObject(listings[0], &l); err != nil {
		return "", fmt.Errorf("%w: element 0: %v", ErrShape, err)
	}
	if l.Data == nil {
		return "", fmt.Errorf("%w: element 0 has no data object", ErrShape)
	}
	if len(l.Data.Children) == 0 {
		return "", fmt.Errorf("%w: data.children is missing or empty", ErrShape)
	}

	var c child
	if err := unmarshalObject(l.Data.Children[0], &c); err != nil {
		return "", fmt.Errorf("%w: children[0]: %v", ErrShape, err)
	}
	if c.Data == nil {
		return "", fmt.Errorf("%w: children[0] has no data object", ErrShape)
	}

	var author string
	if len(c.Data.Author) == 0 || bytes.Equal(c.Data.Author, []byte("null")) {
		return "", fmt.Errorf("%w: children[0].data.author is missing", ErrShape)
	}
	if err := json.Unmarshal(c.Data.Author, &author); err != nil {
		return "", fmt.Errorf("%w: children[0].data.author is not a string", ErrShape)
	}
	return author, nil
}

// unmarshalObject rejects anything but a JSON object, including null, which
// encoding/json would otherwise accept silently.
func unmarshalObject(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errors.New("not an object")
	}
	return json.Unmarshal(raw, v)
}
