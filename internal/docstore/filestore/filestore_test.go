package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore"
	"github.com/twiced-technology-gmbh/ticketboard/internal/docstore/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestStore_writes_one_yaml_file_per_document(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Create(context.Background(), "tickets", "12345", map[string]any{"title": "Fix login"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "tickets", "12345.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Fix login")
}

func TestStore_picks_up_changes_from_another_process(t *testing.T) {
	dir := t.TempDir()
	reader, err := Open(dir)
	require.NoError(t, err)
	defer reader.Close()
	writer, err := Open(dir)
	require.NoError(t, err)
	defer writer.Close()

	var (
		mu   sync.Mutex
		last []docstore.Document
	)
	unsub, err := reader.Subscribe(context.Background(), docstore.Query{Collection: "tickets", OrderBy: "createdAt"},
		func(docs []docstore.Document) {
			mu.Lock()
			defer mu.Unlock()
			last = docs
		}, nil)
	require.NoError(t, err)
	defer unsub()

	_, err = writer.Create(context.Background(), "tickets", "67890", map[string]any{"createdAt": docstore.ServerTimestamp})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0].ID == "67890"
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStore_skips_unreadable_documents(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Create(context.Background(), "tickets", "11111", map[string]any{"title": "ok"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tickets", "22222.yml"), []byte("- not\n- a map\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tickets", "notes.txt"), []byte("ignored"), 0o600))

	docs, err := docstore.Fetch(context.Background(), s, docstore.Query{Collection: "tickets"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "11111", docs[0].ID)
}
