package format

import (
	"encoding/json"
	"io"
)

// Formatter renders a response payload for the terminal.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes one JSON document per call. A non-empty Indent
// pretty-prints it.
type JSONFormatter struct {
	Indent string
}

// Write encodes payload to w.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(payload)
}
