package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGroupSchemaCollectsDefinitions(t *testing.T) {
	groups := schemaGroups()
	require.Len(t, groups, 2)

	schema := generateGroupSchema(groups[0])
	defs, ok := schema["$defs"].(map[string]any)
	require.True(t, ok)
	for _, name := range []string{"OptimizeRequest", "MealRequest", "ShoppingRecommendation", "Purchase", "MealCoverage", "ErrorResponse"} {
		assert.Contains(t, defs, name)
	}
	assert.Equal(t, "Optimize API Types", schema["title"])
}

func TestWriteSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discounts.json")
	require.NoError(t, writeSchema(generateGroupSchema(schemaGroups()[1]), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded["$defs"], "DiscountsResponse")
}
