package agency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agencies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agencies":[
		{"agency_id":"MDI","name":"Moorland","active":true},
		{"agency_id":"LEI","name":"Leeds","active":false}
	]}`), 0o600))

	r, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, r.IsActive("MDI"))
	assert.False(t, r.IsActive("LEI"))
	assert.False(t, r.IsActive("XXX"))
	assert.Equal(t, "Moorland", r.Name("MDI"))
	assert.Equal(t, "XXX", r.Name("XXX"))
	require.Len(t, r.All(), 2)
	assert.Equal(t, "LEI", r.All()[0].AgencyID)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}
