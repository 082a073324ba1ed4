package links

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/clierr"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/memstore"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"https://example.com/docs", true},
		{"http://localhost:8080", true},
		{"", false},
		{"example.com", false},
		{"not a url", false},
		{"mailto:someone@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateURL(tt.in)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, clierr.Is(err, clierr.InvalidURL))
		})
	}
}

func TestFaviconAndHostname(t *testing.T) {
	assert.Equal(t, "https://docs.example.com/favicon.ico", Favicon("https://docs.example.com/a/b?c=d"))
	assert.Equal(t, "http://localhost:8080/favicon.ico", Favicon("http://localhost:8080/x"))
	assert.Empty(t, Favicon("nope"))

	assert.Equal(t, "localhost", Hostname("http://localhost:8080/x"))
	assert.Equal(t, "nope", Hostname("nope"))
}

func TestDisplayTitle(t *testing.T) {
	l := Link{URL: "https://wiki.example.com/page"}
	assert.Equal(t, "wiki.example.com", DisplayTitle(l))

	l.PageTitle = "Onboarding"
	assert.Equal(t, "Onboarding", DisplayTitle(l))

	l.UserTitle = "  Start here "
	assert.Equal(t, "Start here", l.Title())

	l.UserTitle = "   "
	assert.Equal(t, "Onboarding", DisplayTitle(l))
}

func TestStore_add_list_delete(t *testing.T) {
	tick := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	docs := memstore.New(docstore.WithClock(clock))
	defer docs.Close()
	s := NewStore(docs)
	ctx := context.Background()

	first, err := s.Add(ctx, " https://a.example.com/one ", "")
	require.NoError(t, err)
	second, err := s.Add(ctx, "https://b.example.com/two", "Second")
	require.NoError(t, err)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0].ID, "newest first")
	assert.Equal(t, first, got[1].ID)

	assert.Equal(t, "https://a.example.com/one", got[1].URL)
	assert.Equal(t, "https://a.example.com/favicon.ico", got[1].FaviconURL)
	assert.Equal(t, "a.example.com", got[1].Title())
	assert.Equal(t, "Second", got[0].Title())
	assert.False(t, got[0].CreatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, first))
	require.NoError(t, s.Delete(ctx, first), "deleting twice succeeds")

	got, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_add_rejects_invalid_url(t *testing.T) {
	docs := memstore.New()
	defer docs.Close()

	_, err := NewStore(docs).Add(context.Background(), "foo/bar", "x")

	assert.True(t, clierr.Is(err, clierr.InvalidURL))
	got, err := NewStore(docs).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_subscribe(t *testing.T) {
	docs := memstore.New()
	defer docs.Close()
	s := NewStore(docs)

	ch := make(chan []Link, 8)
	unsub, err := s.Subscribe(context.Background(), func(l []Link) { ch <- l }, nil)
	require.NoError(t, err)
	defer unsub()

	select {
	case initial := <-ch:
		assert.Empty(t, initial)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = s.Add(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		select {
		case l := <-ch:
			return len(l) == 1
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDecode_skips_documents_without_url(t *testing.T) {
	out := decodeAll([]docstore.Document{
		{ID: "a", Fields: map[string]any{"userTitle": "x"}},
		{ID: "b", Fields: map[string]any{"url": "https://ok.example.com"}},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}
