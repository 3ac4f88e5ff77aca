package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Breakdown accumulates decimal sums per key and remembers the order in which
// keys first appeared. Report categories and chart labels rely on that order.
type Breakdown struct {
	keys []string
	sums map[string]decimal.Decimal
}

func NewBreakdown() *Breakdown {
	return &Breakdown{sums: make(map[string]decimal.Decimal)}
}

// Add adds amount to key, registering key on first use.
func (b *Breakdown) Add(key string, amount decimal.Decimal) {
	if b.sums == nil {
		b.sums = make(map[string]decimal.Decimal)
	}
	cur, ok := b.sums[key]
	if !ok {
		b.keys = append(b.keys, key)
		cur = decimal.Zero
	}
	b.sums[key] = cur.Add(amount)
}

// Touch registers key with a zero sum if it is not present yet.
func (b *Breakdown) Touch(key string) {
	b.Add(key, decimal.Zero)
}

func (b *Breakdown) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

func (b *Breakdown) Get(key string) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	v, ok := b.sums[key]
	return v, ok
}

// Values returns the sums aligned with Keys.
func (b *Breakdown) Values() []decimal.Decimal {
	if b == nil {
		return nil
	}
	out := make([]decimal.Decimal, len(b.keys))
	for i, k := range b.keys {
		out[i] = b.sums[k]
	}
	return out
}

func (b *Breakdown) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Total is the sum of every entry.
func (b *Breakdown) Total() decimal.Decimal {
	return Sum(b.Values()...)
}

// Equal compares keys, order and values.
func (b *Breakdown) Equal(other *Breakdown) bool {
	if b.Len() != other.Len() {
		return false
	}
	if b.Len() == 0 {
		return true
	}
	for i, k := range b.keys {
		if other.keys[i] != k || !other.sums[k].Equal(b.sums[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the breakdown as an object whose keys keep insertion order.
func (b *Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if b != nil {
		for i, k := range b.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(b.sums[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("breakdown: expected object, got %v", tok)
	}
	*b = Breakdown{sums: make(map[string]decimal.Decimal)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("breakdown: expected key, got %v", tok)
		}
		var v decimal.Decimal
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("breakdown: value for %q: %w", key, err)
		}
		b.Add(key, v)
	}
	_, err = dec.Token()
	return err
}
