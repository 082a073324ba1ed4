// Package links manages the shared list of useful documents: bookmarked
// URLs shown next to the board, newest first.
package links

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
)

// Collection is the document store collection holding links.
const Collection = "usefulLinks"

const (
	fieldURL        = "url"
	fieldUserTitle  = "userTitle"
	fieldPageTitle  = "pageTitle"
	fieldFaviconURL = "faviconUrl"
	fieldCreatedAt  = "createdAt"
	fieldUpdatedAt  = "updatedAt"
)

// Query lists links newest first.
var Query = docstore.Query{Collection: Collection, OrderBy: fieldCreatedAt, Descending: true}

// Link is one bookmarked document.
type Link struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UserTitle  string    `json:"userTitle,omitempty"`
	PageTitle  string    `json:"pageTitle,omitempty"`
	FaviconURL string    `json:"faviconUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Title is the name to show for the link.
func (l Link) Title() string {
	return DisplayTitle(l)
}

// Store reads and writes links.
type Store struct {
	docs docstore.Store
}

// NewStore wraps a document store.
func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// Subscribe delivers every link, newest first, on each change.
func (s *Store) Subscribe(ctx context.Context, onSnapshot func([]Link), onError func(error)) (docstore.Unsubscribe, error) {
	unsub, err := s.docs.Subscribe(ctx, Query,
		func(docs []docstore.Document) { onSnapshot(decodeAll(docs)) },
		func(err error) {
			if onError != nil {
				onError(clierr.Wrap(clierr.StoreSubscriptionFailed, err, "links feed failed"))
			}
		},
	)
	if err != nil {
		return nil, clierr.Wrap(clierr.StoreSubscriptionFailed, err, "subscribing to links")
	}
	return unsub, nil
}

// List returns a single snapshot of the links.
func (s *Store) List(ctx context.Context) ([]Link, error) {
	docs, err := docstore.Fetch(ctx, s.docs, Query)
	if err != nil {
		return nil, clierr.Wrap(clierr.StoreSubscriptionFailed, err, "listing links")
	}
	return decodeAll(docs), nil
}

// Add stores rawURL with an optional title and returns the new id. The URL
// must be absolute.
func (s *Store) Add(ctx context.Context, rawURL, title string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	fields := map[string]any{
		fieldURL:       rawURL,
		fieldPageTitle: "",
		fieldCreatedAt: docstore.ServerTimestamp,
		fieldUpdatedAt: docstore.ServerTimestamp,
	}
	if title = strings.TrimSpace(title); title != "" {
		fields[fieldUserTitle] = title
	}
	if icon := Favicon(rawURL); icon != "" {
		fields[fieldFaviconURL] = icon
	}

	id, err := s.docs.Create(ctx, Collection, "", fields)
	if err != nil {
		log.Error().Err(err).Str("url", rawURL).Msg("add link failed")
		return "", clierr.Wrap(clierr.StoreWriteFailed, err, "adding link")
	}
	return id, nil
}

// Delete removes a link. Deleting a missing link succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.docs.Delete(ctx, Collection, id)
	if err == nil || errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	log.Error().Err(err).Str("id", id).Msg("delete link failed")
	return clierr.Wrap(clierr.StoreWriteFailed, err, "deleting link %s", id)
}

// ValidateURL requires an absolute URL with a scheme and host.
func ValidateURL(raw string) error {
	if raw == "" {
		return clierr.New(clierr.InvalidURL, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return clierr.Newf(clierr.InvalidURL, "invalid url %q", raw).
			WithDetails(map[string]any{"url": raw})
	}
	return nil
}

// Favicon returns origin + "/favicon.ico", or "" when raw does not parse.
func Favicon(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}

// Hostname returns the host of raw without port, or raw itself when it
// does not parse.
func Hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}

// DisplayTitle picks the user title, then the page title, then the host.
func DisplayTitle(l Link) string {
	if t := strings.TrimSpace(l.UserTitle); t != "" {
		return t
	}
	if t := strings.TrimSpace(l.PageTitle); t != "" {
		return t
	}
	return Hostname(l.URL)
}

func decodeAll(docs []docstore.Document) []Link {
	out := make([]Link, 0, len(docs))
	for _, doc := range docs {
		l, ok := decode(doc)
		if !ok {
			log.Warn().Str("id", doc.ID).Msg("skipping link without url")
			continue
		}
		out = append(out, l)
	}
	return out
}

func decode(doc docstore.Document) (Link, bool) {
	f := doc.Fields
	raw, ok := f[fieldURL].(string)
	if !ok || raw == "" {
		return Link{}, false
	}
	l := Link{ID: doc.ID, URL: raw}
	l.UserTitle, _ = f[fieldUserTitle].(string)
	l.PageTitle, _ = f[fieldPageTitle].(string)
	l.FaviconURL, _ = f[fieldFaviconURL].(string)
	l.CreatedAt, _ = f[fieldCreatedAt].(time.Time)
	l.UpdatedAt, _ = f[fieldUpdatedAt].(time.Time)
	return l, true
}
