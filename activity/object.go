package activity

import "time"

// Object wraps a decoded JSON-LD document together with the handful of
// fields origin validation and the rest of the SDK need pulled out by
// name; Raw keeps the full document for callers that need more.
type Object struct {
	Raw          map[string]any
	ID           string
	Type         string
	AttributedTo string
}

// ParseObject extracts the fields Object needs from a decoded document.
func ParseObject(raw map[string]any) *Object {
	return &Object{
		Raw:          raw,
		ID:           stringFromAny(raw["id"]),
		Type:         typeString(raw),
		AttributedTo: stringFromAny(raw["attributedTo"]),
	}
}

// Activity wraps a decoded Activity document. Object is either a bare
// URI string, an embedded *Object, or (for Undo) an embedded
// *Activity — callers type-switch on it the same way the origin
// validator does.
type Activity struct {
	Raw    map[string]any
	ID     string
	Type   string
	Actor  string
	Object any
	To     []string
	Cc     []string
}

// ParseActivity extracts an Activity from a decoded document. The
// "object" field is resolved to a string, *Object, or *Activity
// depending on its shape and the activity's own verb, mirroring the
// per-verb expectations origin validation enforces.
func ParseActivity(raw map[string]any) *Activity {
	a := &Activity{
		Raw:   raw,
		ID:    stringFromAny(raw["id"]),
		Type:  typeString(raw),
		Actor: stringFromAny(raw["actor"]),
		To:    stringsFromAny(raw["to"]),
		Cc:    stringsFromAny(raw["cc"]),
	}

	switch v := raw["object"].(type) {
	case string:
		a.Object = v
	case map[string]any:
		if a.Type == "Undo" && has(v, "actor") && verbs[typeString(v)] {
			a.Object = ParseActivity(v)
		} else {
			a.Object = ParseObject(v)
		}
	}

	return a
}

func boolFromAny(v any) bool {
	b, _ := v.(bool)
	return b
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}

func mapFromAny(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anyToSlice(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	default:
		return nil
	}
}

// stringsFromAny accepts either a bare string or an array of strings,
// the two shapes "to"/"cc" legally take in AS2.
func stringsFromAny(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func timeFromAnyOrZero(v any) time.Time {
	switch v := v.(type) {
	case string:
		t, _ := time.Parse(time.RFC3339, v)
		return t
	case time.Time:
		return v
	default:
		return time.Time{}
	}
}
