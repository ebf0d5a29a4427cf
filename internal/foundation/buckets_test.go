package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_Valid(t *testing.T) {
	catalog, err := NewCatalog([]BucketDef{
		{ID: "a", Weight: 3, Fields: []string{FieldBusinessName}, Required: []string{FieldBusinessName}},
		{ID: "b", Weight: 1, Fields: []string{FieldTagline}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.MaxWeight())
	assert.Len(t, catalog.Buckets(), 2)
	assert.NotNil(t, catalog.Bucket("a"))
	assert.Nil(t, catalog.Bucket("missing"))
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		defs []BucketDef
	}{
		{"empty catalog", nil},
		{"empty id", []BucketDef{{Weight: 1, Fields: []string{FieldTagline}}}},
		{"duplicate id", []BucketDef{
			{ID: "a", Weight: 1, Fields: []string{FieldTagline}},
			{ID: "a", Weight: 1, Fields: []string{FieldWebsiteURL}},
		}},
		{"zero weight", []BucketDef{{ID: "a", Weight: 0, Fields: []string{FieldTagline}}}},
		{"negative weight", []BucketDef{{ID: "a", Weight: -2, Fields: []string{FieldTagline}}}},
		{"unknown field", []BucketDef{{ID: "a", Weight: 1, Fields: []string{"no_such_field"}}}},
		{"duplicate field", []BucketDef{{ID: "a", Weight: 1, Fields: []string{FieldTagline, FieldTagline}}}},
		{"required not subset", []BucketDef{{ID: "a", Weight: 1, Fields: []string{FieldTagline}, Required: []string{FieldWebsiteURL}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs)
			require.Error(t, err)
			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	assert.Equal(t, 3, catalog.MaxWeight())

	core := catalog.Bucket(BucketCoreIdea)
	require.NotNil(t, core)
	assert.Equal(t, 3, core.Weight)
	assert.Contains(t, core.Required, FieldBusinessName)
}

func TestCatalogImmutability(t *testing.T) {
	defs := []BucketDef{
		{ID: "a", Weight: 1, Fields: []string{FieldTagline}},
	}
	catalog, err := NewCatalog(defs)
	require.NoError(t, err)

	// Mutating the input or the returned slices must not affect the catalog.
	defs[0].ID = "mutated"
	got := catalog.Buckets()
	got[0].ID = "also mutated"

	assert.Equal(t, "a", catalog.Buckets()[0].ID)
}
