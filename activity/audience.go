package activity

// PublicMarker is the canonical form every recognized spelling of "the
// public collection" is normalized to.
const PublicMarker = "https://www.w3.org/ns/activitystreams#Public"

var publicSpellings = map[string]bool{
	"https://www.w3.org/ns/activitystreams#Public": true,
	"as:Public": true,
	"Public":    true,
}

// canonicalizeAudienceEntry rewrites any recognized spelling of the
// public marker to PublicMarker, leaving every other entry untouched.
func canonicalizeAudienceEntry(s string) string {
	if publicSpellings[s] {
		return PublicMarker
	}
	return s
}

// Recipients computes the de-duplicated union of an activity's "to",
// "cc", and — for Add/Remove targeting a container — "target" fields,
// with every spelling of the public marker canonicalized first. This
// is the recipient set delivery fans out to.
func Recipients(raw map[string]any) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(s string) {
		s = canonicalizeAudienceEntry(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, s := range stringsFromAny(raw["to"]) {
		add(s)
	}
	for _, s := range stringsFromAny(raw["cc"]) {
		add(s)
	}

	if t := typeString(raw); t == "Add" || t == "Remove" {
		for _, s := range stringsFromAny(raw["target"]) {
			add(s)
		}
	}

	return out
}

// IsPublic reports whether recipients (already canonicalized, e.g. via
// Recipients) include the public marker.
func IsPublic(recipients []string) bool {
	for _, r := range recipients {
		if r == PublicMarker {
			return true
		}
	}
	return false
}
