package flickr

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Args is a flat set of request arguments
type Args map[string]string

// Clone returns a copy of the argument set
func (a Args) Clone() Args {
	out := make(Args, len(a)+3)
	for k, v := range a {
		out[k] = v
	}
	return out
}

// sortedKeys returns the keys in byte-wise ascending order
func (a Args) sortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sign computes the api_sig digest of args: the MD5 of the secret followed
// by every key and value in sorted key order, as 32 lowercase hex digits.
func Sign(secret string, args Args) string {
	h := md5.New()
	h.Write([]byte(secret))
	for _, k := range args.sortedKeys() {
		h.Write([]byte(k))
		h.Write([]byte(args[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewArgs builds an argument set from loosely typed values, normalizing each
// one to its UTF-8 text. Raw UTF-8 bytes and decoded code points of the same
// text produce the same argument value. Integers of every width are
// rendered in decimal. A nil value becomes the empty string.
func NewArgs(values map[string]any) (Args, error) {
	args := make(Args, len(values))
	for k, v := range values {
		s, err := argString(v)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		args[k] = s
	}
	return args, nil
}

func argString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case []rune:
		return string(t), nil
	case []uint16:
		return string(utf16.Decode(t)), nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(t), 10), nil
	case int8:
		return strconv.FormatInt(int64(t), 10), nil
	case int16:
		return strconv.FormatInt(int64(t), 10), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
