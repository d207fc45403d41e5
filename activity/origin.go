package activity

import (
	"fmt"
	"strings"

	"github.com/apxfed/apx/internal/urlid"
)

// maxActivityDepth bounds Undo unwrapping so a maliciously nested
// activity cannot force unbounded recursion.
const maxActivityDepth = 8

// Origin renders the canonical origin string of an id: "scheme://host[:port]"
// for an HttpUrl, or "did:method:msid" for a DID. The did: form is used
// so verb-specific rules that special-case DID subjects (Accept/Reject
// of a portable Follow) can match on a string prefix.
func Origin(id string) (string, error) {
	if strings.HasPrefix(id, "did:") {
		d, err := urlid.ParseDidUrl(id)
		if err != nil {
			return "", err
		}
		return "did:" + d.Method + ":" + d.MSID, nil
	}
	u, err := urlid.ParseHttpUrl(id)
	if err != nil {
		return "", fmt.Errorf("activity: invalid id %q: %w", id, err)
	}
	o := u.Origin()
	return o.String(), nil
}

// ValidateOrigin checks that activity was legitimately produced by
// origin: its own id and actor must belong to origin, and — per verb —
// so must whatever it names as its object. domain is this instance's
// own origin, used by the Accept/Reject rule below to allow a remote
// origin to accept/reject a Follow this instance itself issued.
//
// The per-verb rules are adapted from the AS2 activity vocabulary:
// an origin may only Delete/Create/Update objects it owns, may only
// Accept/Reject a Follow issued by this instance (or by a DID actor),
// and Undo unwraps one level before re-validating the wrapped
// activity. For Follow and Announce only the form of the object id is
// checked; its origin may differ from origin.
func ValidateOrigin(domain string, a *Activity, origin string) error {
	return validateOrigin(domain, a, origin, 0)
}

func validateOrigin(domain string, a *Activity, origin string, depth uint) error {
	if depth == maxActivityDepth {
		return fmt.Errorf("activity: nested too deep")
	}
	if origin == domain {
		return fmt.Errorf("activity: invalid origin")
	}
	if a.ID == "" {
		return fmt.Errorf("activity: unspecified activity id")
	}

	activityOrigin, err := Origin(a.ID)
	if err != nil {
		return err
	}
	if activityOrigin != origin {
		return fmt.Errorf("activity: invalid activity host: %s", activityOrigin)
	}

	if a.Actor == "" {
		return fmt.Errorf("activity: unspecified actor")
	}
	actorOrigin, err := Origin(a.Actor)
	if err != nil {
		return err
	}
	if actorOrigin != origin {
		return fmt.Errorf("activity: invalid actor host: %s", actorOrigin)
	}

	switch a.Type {
	case "Delete":
		return validateObjectOrigin(a.Object, origin)

	case "Follow":
		s, ok := a.Object.(string)
		if !ok {
			return fmt.Errorf("activity: invalid follow object: %T", a.Object)
		}
		_, err := Origin(s)
		return err

	case "Accept", "Reject":
		return validateFollowReference(domain, a.Object)

	case "Undo":
		inner, ok := a.Object.(*Activity)
		if !ok {
			return fmt.Errorf("activity: invalid undo object: %T", a.Object)
		}
		if inner.Type != "Announce" && inner.Type != "Follow" {
			return fmt.Errorf("activity: unsupported undo target: %s", inner.Type)
		}
		return validateOrigin(domain, inner, origin, depth+1)

	case "Create", "Update":
		obj, ok := a.Object.(*Object)
		if !ok {
			if s, ok := a.Object.(string); ok {
				stringOrigin, err := Origin(s)
				if err != nil {
					return err
				}
				if stringOrigin != origin {
					return fmt.Errorf("activity: invalid object host: %s", stringOrigin)
				}
				return nil
			}
			return fmt.Errorf("activity: invalid %s object: %T", a.Type, a.Object)
		}
		objectOrigin, err := Origin(obj.ID)
		if err != nil {
			return err
		}
		if objectOrigin != origin {
			return fmt.Errorf("activity: invalid object host: %s", objectOrigin)
		}
		if obj.AttributedTo != "" && obj.AttributedTo != a.Actor {
			authorOrigin, err := Origin(obj.AttributedTo)
			if err != nil {
				return err
			}
			if authorOrigin != origin {
				return fmt.Errorf("activity: invalid author host: %s", authorOrigin)
			}
		}
		return nil

	case "Announce":
		if _, ok := a.Object.(*Activity); ok {
			return fmt.Errorf("activity: announce must not be nested")
		}
		s, ok := a.Object.(string)
		if !ok || s == "" {
			return fmt.Errorf("activity: invalid announce object: %T", a.Object)
		}
		_, err := Origin(s)
		return err

	default:
		return fmt.Errorf("activity: unsupported activity type: %s", a.Type)
	}
}

func validateObjectOrigin(obj any, origin string) error {
	switch v := obj.(type) {
	case *Object:
		objectOrigin, err := Origin(v.ID)
		if err != nil {
			return err
		}
		if objectOrigin != origin {
			return fmt.Errorf("activity: invalid object host: %s", objectOrigin)
		}
		return nil
	case string:
		stringOrigin, err := Origin(v)
		if err != nil {
			return err
		}
		if stringOrigin != origin {
			return fmt.Errorf("activity: invalid object host: %s", stringOrigin)
		}
		return nil
	default:
		return fmt.Errorf("activity: invalid object: %T", v)
	}
}

// validateFollowReference implements the Accept/Reject rule: the
// referenced Follow must belong to domain (this instance) or to a
// portable (DID) actor, since a DID-authored Follow is not bound to
// any single HTTP origin.
func validateFollowReference(domain string, obj any) error {
	switch v := obj.(type) {
	case *Activity:
		if v.Type != "Follow" {
			return fmt.Errorf("activity: invalid accept/reject object type: %s", v.Type)
		}
		innerOrigin, err := Origin(v.ID)
		if err != nil {
			return err
		}
		if innerOrigin != domain && !strings.HasPrefix(innerOrigin, "did:") {
			return fmt.Errorf("activity: invalid object host: %s", innerOrigin)
		}
		return nil
	case string:
		innerOrigin, err := Origin(v)
		if err != nil {
			return err
		}
		if innerOrigin != domain && !strings.HasPrefix(innerOrigin, "did:") {
			return fmt.Errorf("activity: invalid object host: %s", innerOrigin)
		}
		return nil
	default:
		return fmt.Errorf("activity: invalid accept/reject object: %T", v)
	}
}
