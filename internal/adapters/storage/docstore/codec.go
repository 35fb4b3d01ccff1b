package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Encode converts a tagged struct (or map) into normalized document fields.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("encode document: %T is not an object", v)
	}
	return fields, nil
}

// Decode fills dst from doc. If dst points to a struct with a string ID
// field, it is set to the document id.
func Decode(doc Document, dst any) error {
	b, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", doc.ID, err)
	}
	setID(dst, doc.ID)
	return nil
}

// As decodes doc into a new T.
func As[T any](doc Document) (T, error) {
	var v T
	err := Decode(doc, &v)
	return v, err
}

func setID(dst any, id string) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	f := v.FieldByName("ID")
	if f.IsValid() && f.Kind() == reflect.String && f.CanSet() {
		f.SetString(id)
	}
}

// normalizeFields deep-copies fields into stored JSON form.
func normalizeFields(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	return Encode(fields)
}

func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergePatch applies an RFC 7396 merge patch to dst in place.
func mergePatch(dst, patch map[string]any) {
	for k, pv := range patch {
		if pv == nil {
			delete(dst, k)
			continue
		}
		pm, ok := pv.(map[string]any)
		if !ok {
			dst[k] = pv
			continue
		}
		dm, ok := dst[k].(map[string]any)
		if !ok {
			dm = map[string]any{}
		}
		mergePatch(dm, pm)
		dst[k] = dm
	}
}

func copyFields(fields map[string]any) map[string]any {
	out, err := normalizeFields(fields)
	if err != nil {
		// fields are already normalized so this cannot fail
		panic(err)
	}
	return out
}
