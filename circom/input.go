package circom

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kysee/zk-lightclient/types"
)

// Input is a name to element mapping that keeps insertion order, which is
// the order the witness generator reads signals in.
type Input struct {
	names  []string
	values map[string]Element
}

func newInput() *Input {
	return &Input{values: make(map[string]Element)}
}

// set replaces existing names in place.
func (in *Input) set(name string, e Element) {
	if _, ok := in.values[name]; !ok {
		in.names = append(in.names, name)
	}
	in.values[name] = e
}

func (in *Input) Len() int {
	return len(in.names)
}

func (in *Input) Names() []string {
	return append([]string(nil), in.names...)
}

func (in *Input) Get(name string) (Element, bool) {
	e, ok := in.values[name]
	return e, ok
}

func (in *Input) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range in.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := in.values[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (in *Input) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return fmt.Errorf("%w: circuit input must be a JSON object", types.ErrDecode)
	}
	out := newInput()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrDecode, err)
		}
		name, _ := tok.(string)
		var e Element
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("%w: input %q: %v", types.ErrDecode, name, err)
		}
		out.set(name, e)
	}
	*in = *out
	return nil
}
