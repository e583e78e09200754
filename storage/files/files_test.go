package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akili/shulenet/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&core.Config{UploadsDir: t.TempDir()})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func Test_Store_SaveKeepsOnlyTheExtension(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("My Logo (final).PNG", strings.NewReader("image bytes"))
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "Logo")

	content, err := os.ReadFile(store.Path(name))
	assert.NoError(t, err)
	assert.Equal(t, "image bytes", string(content))

	// two saves of the same original never collide
	name2, err := store.Save("My Logo (final).PNG", strings.NewReader("other"))
	assert.NoError(t, err)
	assert.NotEqual(t, name, name2)
}

func Test_Store_SaveDropsUnknownExtensions(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("evil.php", strings.NewReader("<?php"))
	assert.NoError(t, err)
	assert.Equal(t, "", filepath.Ext(name))
}

func Test_Store_PathNeverEscapesTheStore(t *testing.T) {
	store := newTestStore(t)

	path := store.Path("../../etc/passwd")
	assert.Equal(t, store.Path("passwd"), path)

	assert.Equal(t, store.Path(Placeholder), store.Path(""))
}

func Test_Store_Remove(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("logo.png", strings.NewReader("image bytes"))
	assert.NoError(t, err)
	assert.NoError(t, store.Remove(name))
	_, err = os.Stat(store.Path(name))
	assert.True(t, os.IsNotExist(err))

	// removing what is already gone is fine, the placeholder is never removed
	assert.NoError(t, store.Remove(name))
	assert.NoError(t, store.Remove(Placeholder))
	assert.NoError(t, store.Remove(""))
}
