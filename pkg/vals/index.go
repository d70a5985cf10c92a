package vals

// Index returns the element of v under key. Maps are indexed by the text form
// of the key, Fielders by field name, and lists by position or "length".
// Indexing anything else, or a missing key, yields nil. Indexing never
// creates fields.
func Index(v, key any) any {
	switch v := v.(type) {
	case map[string]any:
		return v[ToText(key)]
	case Fielder:
		name := ToText(key)
		if h, ok := v.(interface{ Has(string) bool }); ok && !h.Has(name) {
			return nil
		}
		return v.Field(name).Value()
	case []any:
		if key == "length" {
			return len(v)
		}
		if i, ok := toInt(key); ok && 0 <= i && i < len(v) {
			return v[i]
		}
	}
	return nil
}
