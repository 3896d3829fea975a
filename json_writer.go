package folio

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object whose fields keep their insertion order, so that
// records are written in a stable, diff-friendly form. Its zero value is an empty object.
type jsonObjectWriter struct {
	buf []byte
	err error
}

// Append adds a field. The value is encoded with json.Marshal.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("field %q: %w", key, err)
		return w
	}
	k, _ := json.Marshal(key)
	if len(w.buf) > 0 {
		w.buf = append(w.buf, ',')
	}
	w.buf = append(append(append(w.buf, k...), ':'), v...)
	return w
}

// Optional adds a field unless value is the zero value of its type.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON returns the object, or the first error met while appending.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	obj := make([]byte, 0, len(w.buf)+2)
	obj = append(obj, '{')
	obj = append(obj, w.buf...)
	return append(obj, '}'), nil
}
