package fetcher

import (
	"context"
	"fmt"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/transport"
	"github.com/apxfed/apx/internal/urlid"
)

const defaultMaxPages = 3

// Page is one fetched page of a paginated collection.
type Page struct {
	Items []any
	Next  string
}

// FetchCollection walks a collection's first/next chain up to maxPages
// (0 selects the default of 3), requiring every page's origin to match
// the collection's own origin — a collection cannot redirect paging
// into an attacker-controlled host partway through.
func FetchCollection(ctx context.Context, agent *transport.Agent, uri string, maxPages int, opts Options) ([]Page, error) {
	const op = "fetcher.FetchCollection"
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	root, err := FetchObject(ctx, agent, uri, opts)
	if err != nil {
		return nil, err
	}

	collectionOrigin, err := originOf(root.ID)
	if err != nil {
		return nil, ferr.New(ferr.TypeConfusion, op, err)
	}

	var pages []Page
	next := firstPageURL(root.Raw)
	for i := 0; next != "" && i < maxPages; i++ {
		page, err := FetchObject(ctx, agent, next, opts)
		if err != nil {
			return pages, err
		}
		pageOrigin, err := originOf(page.ID)
		if err != nil {
			return pages, ferr.New(ferr.TypeConfusion, op, err)
		}
		if pageOrigin != collectionOrigin {
			return pages, ferr.New(ferr.TypeConfusion, op, fmt.Errorf("collection page origin %s does not match collection origin %s", pageOrigin, collectionOrigin))
		}

		pages = append(pages, Page{
			Items: itemsOf(page.Raw),
			Next:  stringField(page.Raw, "next"),
		})
		next = stringField(page.Raw, "next")
	}

	return pages, nil
}

func originOf(id string) (string, error) {
	u, err := urlid.ParseHttpUrl(id)
	if err != nil {
		return "", err
	}
	return u.Origin().String(), nil
}

func firstPageURL(raw map[string]any) string {
	switch v := raw["first"].(type) {
	case string:
		return v
	case map[string]any:
		return stringField(v, "id")
	default:
		return ""
	}
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func itemsOf(raw map[string]any) []any {
	if items, ok := raw["orderedItems"].([]any); ok {
		return items
	}
	if items, ok := raw["items"].([]any); ok {
		return items
	}
	return nil
}
