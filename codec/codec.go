// Package codec centralizes metadata encoding.
//
// Changing the codec changes persisted bytes. Records carry the name of the
// codec that wrote them in Record.Codec, and DecodeRecord reads them back
// with that codec.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json", "":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
