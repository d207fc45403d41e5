package activity

import "strings"

// Mention is a "tag" entry of type Mention: an actor reference by URL.
type Mention struct {
	Href string
	Name string
}

// Hashtag is a "tag" entry of type Hashtag.
type Hashtag struct {
	Name string
}

// Attachment is the normalized form of an AS2 attachment: whatever
// shape "url" arrived in (bare string, Link object, or array of
// either), collapsed to a single URL plus optional media type and
// content digest.
type Attachment struct {
	URL             string
	MediaType       string
	DigestMultibase string
}

// ParseTags splits a document's "tag" array into its Mention and
// Hashtag entries, ignoring any other tag type.
func ParseTags(raw map[string]any) (mentions []Mention, hashtags []Hashtag) {
	for _, tag := range anyToSlice(raw["tag"])  {
		t := mapFromAny(tag)
		switch typeString(t) {
		case "Mention":
			mentions = append(mentions, Mention{
				Href: stringFromAny(t["href"]),
				Name: stringFromAny(t["name"]),
			})
		case "Hashtag":
			hashtags = append(hashtags, Hashtag{
				Name: strings.TrimLeft(stringFromAny(t["name"]), "#"),
			})
		}
	}
	return mentions, hashtags
}

// ParseAttachments normalizes a document's "attachment" field. An
// attachment whose URL cannot be resolved to a non-empty string is
// dropped rather than causing the whole document to be rejected — a
// single malformed attachment shouldn't sink an otherwise valid post.
func ParseAttachments(raw map[string]any) []Attachment {
	items := anyToSlice(raw["attachment"])
	out := make([]Attachment, 0, len(items))
	for _, item := range items {
		m := mapFromAny(item)
		if m == nil {
			continue
		}
		url := attachmentURL(m["url"])
		if url == "" {
			continue
		}
		out = append(out, Attachment{
			URL:             url,
			MediaType:       stringFromAny(m["mediaType"]),
			DigestMultibase: stringFromAny(m["digestMultibase"]),
		})
	}
	return out
}

// attachmentURL resolves the three legal shapes of an attachment's
// "url" field: a bare string, a single Link object, or an array of
// either — taking the first resolvable entry.
func attachmentURL(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any:
		return stringFromAny(v["href"])
	case []any:
		for _, e := range v {
			if u := attachmentURL(e); u != "" {
				return u
			}
		}
	}
	return ""
}
