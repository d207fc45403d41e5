package webfinger

// Jrd is a JSON Resource Descriptor, RFC 7033 §4.4.
type Jrd struct {
	Subject    string            `json:"subject"`
	Aliases    []string          `json:"aliases,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Links      []Link            `json:"links,omitempty"`
}

// Link is one JRD link entry.
type Link struct {
	Rel        string            `json:"rel"`
	Type       string            `json:"type,omitempty"`
	Href       string            `json:"href,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// actorMediaTypes are the media types a "self" link must carry for
// SelfActorURL to accept it as the actor URL.
var actorMediaTypes = map[string]bool{
	"application/activity+json": true,
	`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`: true,
}

// SelfActorURL extracts the actor URL from a JRD's "self" link whose
// type names an ActivityPub/AS2 media type.
func SelfActorURL(jrd *Jrd) (string, error) {
	for _, l := range jrd.Links {
		if l.Rel == "self" && actorMediaTypes[l.Type] && l.Href != "" {
			return l.Href, nil
		}
	}
	return "", errNoSelfLink
}

type webfingerError string

func (e webfingerError) Error() string { return string(e) }

const errNoSelfLink = webfingerError("webfinger: no self link with an ActivityPub media type")
