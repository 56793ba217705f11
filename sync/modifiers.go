package sync

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

func init() {

	// ids reduces an assignment list to its sorted ids, accepting both
	// nested objects ({"id":1,...}) and bare ids, so source and destination
	// lists compare equal regardless of representation.
	gjson.AddModifier("ids", func(json, arg string) string {
		res := gjson.Parse(json)
		if !res.IsArray() {
			return "[]"
		}
		var ids []int64
		for _, v := range res.Array() {
			switch {
			case v.IsObject():
				if id := v.Get("id"); id.Exists() {
					ids = append(ids, id.Int())
				}
			case v.Type == gjson.Number:
				ids = append(ids, v.Int())
			}
		}
		slices.Sort(ids)
		s := make([]string, len(ids))
		for i, id := range ids {
			s[i] = strconv.FormatInt(id, 10)
		}
		return "[" + strings.Join(s, ",") + "]"
	})

	// term returns the value an assignment is looked up by on the
	// destination: the key named by arg, else its slug, else its name.
	gjson.AddModifier("term", func(json, arg string) string {
		res := gjson.Parse(json)
		if !res.IsObject() {
			if !res.Exists() {
				return ""
			}
			return quoteJSON(res.String())
		}
		for _, key := range []string{arg, "slug", "name"} {
			if key == "" {
				continue
			}
			if v := res.Get(key); v.Exists() && v.String() != "" {
				return quoteJSON(v.String())
			}
		}
		return ""
	})

}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
