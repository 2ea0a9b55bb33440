package bridge

import (
	"bytes"
	"encoding/json"
	"io"

	perr "hostbridge/internal/platform/errors"
)

// MethodDescription is one method entry in the schema document
type MethodDescription struct {
	Name     string
	MethodID int
	Kind     string
}

// ModuleDescription is one module entry in the schema document
type ModuleDescription struct {
	Name      string
	ModuleID  int
	Methods   []MethodDescription
	Constants map[string]any // nil when the module exports none
}

// Descriptions is the full schema document, ascending by module id.
// It marshals to the nested object consumed by remote stub generators:
//
//	{"<module>": {"moduleID": n, "methods": {"<m>": {"methodID": i, "type": k}}, "constants": {...}}}
//
// Key order is significant and preserved: modules ascend by id, methods
// follow the frozen method table, so repeated marshals of the same
// registry are byte-identical
type Descriptions []ModuleDescription

// Describe snapshots the schema document for this registry
func (r *Registry) Describe() Descriptions {
	out := make(Descriptions, 0, len(r.table))
	for _, def := range r.table {
		md := ModuleDescription{
			Name:     def.name,
			ModuleID: def.id,
			Methods:  make([]MethodDescription, 0, len(def.methods)),
		}
		for i, m := range def.methods {
			md.Methods = append(md.Methods, MethodDescription{
				Name:     m.name,
				MethodID: i,
				Kind:     m.kind,
			})
		}
		if cp, ok := def.target.(ConstantsProvider); ok {
			md.Constants = cp.Constants()
		}
		out = append(out, md)
	}
	return out
}

// WriteDescriptions writes the schema document to w inside a trace scope.
// Invoked once per session (or on demand) so the remote side can build
// local call stubs without further round trips
func (r *Registry) WriteDescriptions(w io.Writer) error {
	end := r.sink.Begin("BridgeRegistry_writeDescriptions")
	defer end()
	b, err := r.Describe().MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// MarshalJSON renders the document with deterministic key order. A plain
// map would randomize module and method keys, so the object is assembled
// by hand; values still go through encoding/json, which sorts constants
// maps by key and keeps the output stable
func (d Descriptions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, md := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, md.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		buf.WriteString(`"moduleID":`)
		if err := writeVal(&buf, md.ModuleID); err != nil {
			return nil, err
		}
		buf.WriteString(`,"methods":{`)
		for j, m := range md.Methods {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, m.Name); err != nil {
				return nil, err
			}
			buf.WriteString(`{"methodID":`)
			if err := writeVal(&buf, m.MethodID); err != nil {
				return nil, err
			}
			buf.WriteString(`,"type":`)
			if err := writeVal(&buf, m.Kind); err != nil {
				return nil, err
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
		if md.Constants != nil {
			buf.WriteString(`,"constants":`)
			if err := writeVal(&buf, md.Constants); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeJSON,
					"bridge: module %q constants are not JSON-serializable", md.Name)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, k string) error {
	if err := writeVal(buf, k); err != nil {
		return err
	}
	buf.WriteByte(':')
	return nil
}

func writeVal(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
