package activity

// RFC9421SignaturesCapability is the FEP-844e capability URI an actor
// advertises in its "implements" property to signal it accepts
// RFC-9421 HTTP message signatures on inbound deliveries, per
// spec.md §9's discussion of peer signaling.
const RFC9421SignaturesCapability = "https://codeberg.org/fediverse/fep/src/branch/main/fep/844e/fep-844e.md#RFC9421Signatures"

// Capabilities reads an actor document's "implements" property (FEP-844e),
// which may be an array of plain capability-URI strings or an array of
// {"href": "..."} objects, and returns the URIs found. A missing or
// malformed property yields an empty slice rather than an error — most
// actors don't advertise any capabilities, and that's not a defect in
// the document.
func Capabilities(raw map[string]any) []string {
	items := anyToSlice(raw["implements"])
	var out []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if href := stringFromAny(v["href"]); href != "" {
				out = append(out, href)
			} else if id := stringFromAny(v["id"]); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// SupportsRFC9421 reports whether an actor's advertised capabilities
// include RFC9421SignaturesCapability.
func SupportsRFC9421(raw map[string]any) bool {
	for _, c := range Capabilities(raw) {
		if c == RFC9421SignaturesCapability {
			return true
		}
	}
	return false
}
