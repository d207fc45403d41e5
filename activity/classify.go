// Package activity implements the AS2 duck-typing classifier, per-verb
// origin validation, and the tag/attachment/audience normalization
// rules a received or fetched JSON-LD document is run through before
// the rest of the SDK trusts it.
package activity

// CoreType is the output of the duck-typing classifier: the AS2
// document shape a JSON object is treated as, independent of its
// declared "type" string.
type CoreType int

const (
	TypeOther CoreType = iota
	TypeActor
	TypeVerificationMethod
	TypeCollection
	TypeCollectionPage
	TypeActivity
	TypeTombstone
	TypeLink
	TypeObject
)

func (t CoreType) String() string {
	switch t {
	case TypeActor:
		return "Actor"
	case TypeVerificationMethod:
		return "VerificationMethod"
	case TypeCollection:
		return "Collection"
	case TypeCollectionPage:
		return "CollectionPage"
	case TypeActivity:
		return "Activity"
	case TypeTombstone:
		return "Tombstone"
	case TypeLink:
		return "Link"
	case TypeObject:
		return "Object"
	default:
		return "Other"
	}
}

// verbs is the AS2 activity-verb vocabulary. A document with an
// "actor" field and one of these as its "type" classifies as Activity
// rather than Object, ahead of the bare Object fallback.
var verbs = map[string]bool{
	"Accept": true, "Add": true, "Announce": true, "Arrive": true,
	"Block": true, "Create": true, "Delete": true, "Dislike": true,
	"Flag": true, "Follow": true, "Ignore": true, "Invite": true,
	"Join": true, "Leave": true, "Like": true, "Listen": true,
	"Move": true, "Offer": true, "Question": true, "Reject": true,
	"Read": true, "Remove": true, "TentativeAccept": true,
	"TentativeReject": true, "Travel": true, "Undo": true,
	"Update": true, "View": true,
}

// Classify implements spec's priority-ordered predicate chain over a
// generic decoded JSON object. Highest priority first: Actor ahead of
// VerificationMethod ahead of Collection ahead of Activity ahead of
// Tombstone ahead of Link, with Object as the catch-all. The ordering
// is load-bearing — it is what prevents a document crafted to satisfy
// more than one predicate (e.g. an "actor" with a "type":"Create") from
// being classified as whichever shape is more convenient for an
// attacker.
func Classify(obj map[string]any) CoreType {
	if hasAny(obj, "inbox", "publicKey") {
		return TypeActor
	}

	if hasAny(obj, "publicKeyMultibase", "publicKeyPem") && !has(obj, "inbox") {
		return TypeVerificationMethod
	}

	if hasAny(obj, "items", "orderedItems", "first", "last", "next", "prev", "current", "partOf") {
		if isCollectionPage(obj) {
			return TypeCollectionPage
		}
		return TypeCollection
	}

	if has(obj, "actor") && verbs[typeString(obj)] {
		return TypeActivity
	}

	if typeString(obj) == "Tombstone" {
		return TypeTombstone
	}

	if has(obj, "href") && !isIDAsObject(obj) {
		return TypeLink
	}

	return TypeObject
}

// isCollectionPage distinguishes a page (has partOf, no first/last) of
// a collection from the collection itself; a declared "...Page" type
// string is a page regardless of which link fields are present.
func isCollectionPage(obj map[string]any) bool {
	t := typeString(obj)
	if len(t) > 4 && t[len(t)-4:] == "Page" {
		return true
	}
	return has(obj, "partOf") && !has(obj, "first") && !has(obj, "last")
}

// isIDAsObject reports whether obj is being used as a full object with
// its own identity (has "id") rather than as a bare Link reference —
// an object with both "href" and "id" is treated as an Object, not a
// Link, since a Link's "href" is its only identity.
func isIDAsObject(obj map[string]any) bool {
	return has(obj, "id") && typeString(obj) != "Link" && typeString(obj) != "Mention"
}

func typeString(obj map[string]any) string {
	switch v := obj["type"].(type) {
	case string:
		return v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				return s
			}
		}
	}
	return ""
}

func has(obj map[string]any, key string) bool {
	v, ok := obj[key]
	return ok && v != nil
}

func hasAny(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if has(obj, k) {
			return true
		}
	}
	return false
}
