// Package output encodes command results as JSON or MessagePack.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	JSON    = "json"
	MsgPack = "msgpack"
)

// Formatter writes values in one encoding. JSON is the default.
type Formatter struct {
	Format string
	// Indent pretty-prints JSON.
	Indent bool
}

func NewFormatter(format string) (*Formatter, error) {
	switch format {
	case "", JSON:
		return &Formatter{Format: JSON, Indent: true}, nil
	case MsgPack:
		return &Formatter{Format: MsgPack}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Write encodes data to w.
func (f *Formatter) Write(w io.Writer, data any) error {
	if f.Format == MsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
