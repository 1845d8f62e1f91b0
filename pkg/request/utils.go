package request

import (
	jsonlib "encoding/json"
	"fmt"
	"maps"
	"net/url"
	"reflect"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// ToFormBody converts a JSON like map to form body map, any type is mapped to string.
// Slices are flattened to "key[index]" fields, maps to "key[subKey]" fields.
func ToFormBody(in map[string]any) (out map[string]string) {
	out = make(map[string]string)
	for k, v := range in {
		if v == nil {
			out[k] = ""
			continue
		}
		switch ty := reflect.TypeOf(v); {
		case ty.Kind() == reflect.Slice && ty.Elem().Kind() != reflect.Uint8:
			for i, s := range cast.ToStringSlice(v) {
				out[fmt.Sprintf("%s[%d]", k, i)] = s
			}
		case ty.Kind() == reflect.Map && ty.Key().Kind() == reflect.String:
			for subKey, s := range cast.ToStringMapString(v) {
				out[fmt.Sprintf("%s[%s]", k, subKey)] = s
			}
		default:
			out[k] = castToString(v)
		}
	}
	return out
}

func cloneParams(in map[string]string) (out map[string]string) {
	out = make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}

func cloneURLValues(in url.Values) (out url.Values) {
	out = make(url.Values, len(in))
	for k, values := range in {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}

func castToString(v any) string {
	// Ordered map
	if orderedMap, ok := v.(*orderedmap.OrderedMap); ok {
		// Standard json encoding library is used.
		// JsonIter lib returns non-compact JSON,
		// if custom OrderedMap.MarshalJSON method is used.
		bytes, err := jsonlib.Marshal(orderedMap)
		if err != nil {
			panic(fmt.Errorf(`cannot cast %T to string: %w`, v, err))
		}
		return string(bytes)
	}

	// Other types
	str, err := cast.ToStringE(v)
	if err != nil {
		panic(fmt.Errorf(`cannot cast %T to string: %w`, v, err))
	}
	return str
}
