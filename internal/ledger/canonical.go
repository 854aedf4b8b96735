package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// maxDepth bounds recursion while normalising payloads. Payloads are event
// fields, not documents; anything deeper than this is treated as cyclic.
const maxDepth = 32

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical bytes.
var encMode cbor.EncMode

// decMode decodes stored payload bytes. Any-typed targets decode as
// map[string]any, matching what Canonicalize accepted.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ledger: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("ledger: CBOR decoder initialization failed: " + err.Error())
	}
}

// DecodePayload decodes a link's canonical payload bytes into v. Reading a
// payload never re-serialises it; the stored bytes stay authoritative.
func DecodePayload(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ledger: decode payload: %w", err)
	}
	return nil
}

// CanonicalizationError reports a payload that has no deterministic byte
// encoding. It is local and non-retryable, and is always surfaced before any
// store I/O is attempted.
type CanonicalizationError struct {
	Reason string
}

func (e *CanonicalizationError) Error() string {
	return "ledger: canonicalize: " + e.Reason
}

func canonErrf(format string, args ...any) error {
	return &CanonicalizationError{Reason: fmt.Sprintf(format, args...)}
}

// Canonicalize encodes a structured value (string-keyed maps, arrays, strings,
// bools, integers, floats, timestamps, byte slices) into its unique canonical
// byte form. Two logically equal values always produce byte-identical output
// regardless of map insertion order or the Go numeric type carrying a value.
//
// Rules:
//   - map keys are sorted (by the deterministic CBOR encoding);
//   - arrays preserve order, and may not contain nil elements;
//   - map entries whose value is nil or the empty string are omitted, so an
//     absent field and an explicitly empty one canonicalise identically;
//   - integral floats within ±2^53 are encoded as integers, so JSON-decoded
//     numbers and native ints agree;
//   - timestamps are normalised to UTC RFC 3339 with nanosecond precision.
//
// A nil value canonicalises as an empty map. Non-finite numbers, cyclic or
// over-deep structures, and unsupported types are rejected with a
// CanonicalizationError.
func Canonicalize(v any) ([]byte, error) {
	norm, err := normalize(v, 0)
	if err != nil {
		return nil, err
	}
	if norm == nil {
		norm = map[string]any{}
	}
	data, err := encMode.Marshal(norm)
	if err != nil {
		return nil, canonErrf("encode: %v", err)
	}
	return data, nil
}

// maxExactInt is the largest float64 magnitude whose integral values are all
// exactly representable (2^53).
const maxExactInt = 1 << 53

func normalize(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, canonErrf("value exceeds depth %d (cyclic?)", maxDepth)
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case []byte:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, canonErrf("number %q is not representable", x.String())
		}
		return normalizeFloat(f)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case Evidence:
		return normalizeMap(reflect.ValueOf(x.PayloadFields()), depth)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, canonErrf("map keys must be strings, got %s", rv.Type().Key())
		}
		return normalizeMap(rv, depth)
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := normalize(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			if elem == nil {
				return nil, canonErrf("array index %d: nil elements are not canonicalizable", i)
			}
			out[i] = elem
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface(), depth)
	}
	return nil, canonErrf("unsupported type %T", v)
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, canonErrf("non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return int64(f), nil
	}
	return f, nil
}

func normalizeMap(rv reflect.Value, depth int) (any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		val, err := normalize(iter.Value().Interface(), depth+1)
		if err != nil {
			return nil, canonErrf("key %q: %v", key, unwrapReason(err))
		}
		// Omission rule: nil and empty-string values are dropped, so callers
		// that pass an empty field and callers that leave it out agree.
		if val == nil {
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		out[key] = val
	}
	return out, nil
}

func unwrapReason(err error) string {
	if ce, ok := err.(*CanonicalizationError); ok {
		return ce.Reason
	}
	return err.Error()
}
