// Package rating implements per-item continuous rating capture and the
// submission protocol that turns a set of item ratings into one trial result.
package rating

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags which variant of a Rating is active.
type Kind uint8

const (
	KindUnset Kind = iota
	KindNone
	KindScaled
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindNone:
		return "none"
	case KindScaled:
		return "scaled"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

const (
	MinScaled = 0
	MaxScaled = 100
)

// Rating is the value assigned to an item: unset, none, or a scaled 0..100.
// The zero value is Unset.
type Rating struct {
	kind  Kind
	value int
}

func Unset() Rating      { return Rating{} }
func NoneRating() Rating { return Rating{kind: KindNone} }

// Scaled returns a scaled rating. Values outside 0..100 are a programming
// error and panic.
func Scaled(v int) Rating {
	if v < MinScaled || v > MaxScaled {
		panic(fmt.Sprintf("rating: scaled value %d out of range", v))
	}
	return Rating{kind: KindScaled, value: v}
}

func (r Rating) Kind() Kind     { return r.kind }
func (r Rating) IsUnset() bool  { return r.kind == KindUnset }
func (r Rating) IsNone() bool   { return r.kind == KindNone }
func (r Rating) IsScaled() bool { return r.kind == KindScaled }

// Value returns the scaled value and whether the rating is scaled.
func (r Rating) Value() (int, bool) {
	return r.value, r.kind == KindScaled
}

func (r Rating) String() string {
	switch r.kind {
	case KindNone:
		return "none"
	case KindScaled:
		return fmt.Sprintf("%d", r.value)
	}
	return "unset"
}

// MarshalJSON encodes Unset as null, None as "none" and Scaled as a number.
func (r Rating) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindNone:
		return []byte(`"none"`), nil
	case KindScaled:
		return []byte(fmt.Sprintf("%d", r.value)), nil
	}
	return []byte("null"), nil
}

func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = Unset()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != "none" {
			return fmt.Errorf("rating: unknown rating %q", s)
		}
		*r = NoneRating()
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	if v < MinScaled || v > MaxScaled {
		return fmt.Errorf("rating: scaled value %d out of range", v)
	}
	*r = Scaled(v)
	return nil
}

// ItemRating pairs an item label with its rating.
type ItemRating struct {
	Item   string
	Rating Rating
}

// Ratings is an ordered item -> rating mapping. It encodes as a JSON object
// whose keys keep display order.
type Ratings []ItemRating

// Get returns the rating for item, or Unset and false if the item is absent.
func (rs Ratings) Get(item string) (Rating, bool) {
	for _, r := range rs {
		if r.Item == item {
			return r.Rating, true
		}
	}
	return Unset(), false
}

func (rs Ratings) Map() map[string]Rating {
	out := make(map[string]Rating, len(rs))
	for _, r := range rs {
		out[r.Item] = r.Rating
	}
	return out
}

func (rs Ratings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(r.Item)
		if err != nil {
			return nil, err
		}
		v, _ := r.Rating.MarshalJSON()
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, preserving key order.
func (rs *Ratings) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*rs = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("rating: ratings must be an object")
	}
	out := Ratings{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var r Rating
		if err := r.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("rating %q: %w", key, err)
		}
		out = append(out, ItemRating{Item: key, Rating: r})
	}
	*rs = out
	return nil
}
