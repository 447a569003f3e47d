package circom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/kysee/zk-lightclient/types"
)

// Element is one circuit input: a field element or a nested array of them.
type Element struct {
	value *big.Int
	items []Element
}

func Int(v *big.Int) Element {
	return Element{value: new(big.Int).Set(v)}
}

func Uint(v uint64) Element {
	return Element{value: new(big.Int).SetUint64(v)}
}

func Array(items ...Element) Element {
	if items == nil {
		items = []Element{}
	}
	return Element{items: items}
}

// ByteArray emits one element per byte.
func ByteArray(bz []byte) Element {
	items := make([]Element, len(bz))
	for i, b := range bz {
		items[i] = Uint(uint64(b))
	}
	return Array(items...)
}

// BitArray emits one 0/1 element per bit.
func BitArray(bits []uint8) Element {
	items := make([]Element, len(bits))
	for i, b := range bits {
		items[i] = Uint(uint64(b & 1))
	}
	return Array(items...)
}

// LimbArray parses the decimal limbs produced by types.ToLimbs.
func LimbArray(limbs []string) (Element, error) {
	items := make([]Element, len(limbs))
	for i, l := range limbs {
		v, ok := new(big.Int).SetString(l, 10)
		if !ok {
			return Element{}, fmt.Errorf("%w: limb %d is not decimal: %q", types.ErrDecode, i, l)
		}
		items[i] = Element{value: v}
	}
	return Array(items...), nil
}

func (e Element) IsArray() bool {
	return e.value == nil
}

func (e Element) Len() int {
	return len(e.items)
}

func (e Element) At(i int) Element {
	return e.items[i]
}

// Int returns a copy of the scalar value, or nil for arrays.
func (e Element) Int() *big.Int {
	if e.value == nil {
		return nil
	}
	return new(big.Int).Set(e.value)
}

// Shape returns the array dimensions, following the first item at every level.
func (e Element) Shape() []int {
	var shape []int
	for cur := e; cur.IsArray(); {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			break
		}
		cur = cur.At(0)
	}
	return shape
}

// MarshalJSON writes scalars as decimal strings so no consumer rounds them.
func (e Element) MarshalJSON() ([]byte, error) {
	if !e.IsArray() {
		return []byte(`"` + e.value.String() + `"`), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range e.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		bz, err := item.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(bz)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts decimal strings, JSON numbers and nested arrays of them.
func (e *Element) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Element
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*e = Array(items...)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("%w: circuit input %s: %v", types.ErrDecode, data, err)
	}
	v, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return fmt.Errorf("%w: circuit input %s is not a decimal integer", types.ErrDecode, data)
	}
	*e = Element{value: v}
	return nil
}
