package persist

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestKV_SaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	kv := New(fs, "/data", "thedrop")

	require.NoError(t, kv.Save("library", doc{Name: "x", Count: 3}))

	var got doc
	ok, err := kv.Load("library", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc{Name: "x", Count: 3}, got)

	// keys are namespaced files
	exists, _ := afero.Exists(fs, "/data/thedrop-library.json")
	assert.True(t, exists)
}

func TestKV_LoadMissingKey(t *testing.T) {
	kv := New(afero.NewMemMapFs(), "/data", "thedrop")
	var got doc
	ok, err := kv.Load("library", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_Delete(t *testing.T) {
	fs := afero.NewMemMapFs()
	kv := New(fs, "/data", "thedrop")
	require.NoError(t, kv.Save("library", doc{}))
	require.NoError(t, kv.Delete("library"))

	ok, err := kv.Load("library", &doc{})
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is fine
	require.NoError(t, kv.Delete("library"))
}

func TestKV_DegradesToMemoryOnStorageFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	kv := New(fs, "/data", "thedrop")

	require.NoError(t, kv.Save("library", doc{Name: "session-only"}), "storage failure must not surface")

	var got doc
	ok, err := kv.Load("library", &got)
	require.NoError(t, err)
	assert.True(t, ok, "the session keeps working against memory")
	assert.Equal(t, "session-only", got.Name)
}

func TestKV_OverwriteReplacesDocument(t *testing.T) {
	kv := New(afero.NewMemMapFs(), "/data", "thedrop")
	require.NoError(t, kv.Save("library", doc{Count: 1}))
	require.NoError(t, kv.Save("library", doc{Count: 2}))

	var got doc
	_, err := kv.Load("library", &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
}
