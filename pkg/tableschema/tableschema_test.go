// SPDX-License-Identifier: Apache-2.0

package tableschema_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/tableschema"
	"github.com/datapkg/datapkg/pkg/testutil"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInferTypes(t *testing.T) {
	path := writeCSV(t,
		"id,score,active,joined,name\n"+
			"1,4.5,true,2021-06-01,ann\n"+
			"2,3.25,false,2022-01-15,bob\n")

	schema, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)

	types := make(map[string]string)
	for _, field := range schema.Fields {
		types[field.Name] = field.Type
	}
	assert.Equal(t, map[string]string{
		"id":     "integer",
		"score":  "number",
		"active": "boolean",
		"joined": "date",
		"name":   "string",
	}, types)
}

func TestInferUniqueness(t *testing.T) {
	path := writeCSV(t, "id,category\n1,alpha\n2,beta\n3,alpha\n")

	schema, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)

	assert.True(t, schema.Field("id").Constraints.Unique)
	assert.False(t, schema.Field("category").Constraints.Unique)
}

func TestInferEnum(t *testing.T) {
	path := writeCSV(t, "id,category,note\n1,beta,x\n2,alpha,\n3,alpha,y\n")

	schema, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)

	// Low-cardinality column with no blanks: sorted enum.
	assert.Equal(t, []string{"alpha", "beta"}, schema.Field("category").Constraints.Enum)
	// Blank cells disqualify a column from enum inference.
	assert.Nil(t, schema.Field("note").Constraints.Enum)
}

func TestInferEnumThreshold(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id\n")
	for i := 0; i < tableschema.DefaultEnumThreshold; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}
	path := writeCSV(t, sb.String())

	schema, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)
	assert.Nil(t, schema.Field("id").Constraints.Enum)
}

func TestInferExampleIsSmallestString(t *testing.T) {
	// The example is the first value after a lexicographic sort of the
	// string forms, not a representative pick.
	path := writeCSV(t, "name\nzane\nann\n\nbob\n")

	schema, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ann", schema.Field("name").Example)
}

func TestInferMergesExistingDescriptions(t *testing.T) {
	path := writeCSV(t, "id,category\n1,alpha\n2,beta\n")
	existing := &frictionless.Schema{Fields: []frictionless.Field{
		{Name: "id", Type: "string", Description: "The identifier"},
		{Name: "dropped", Description: "No longer present"},
	}}

	schema, err := tableschema.Infer(path, existing, tableschema.Options{})
	require.NoError(t, err)

	// Descriptions survive by field name; everything else is re-derived.
	assert.Equal(t, "The identifier", schema.Field("id").Description)
	assert.Equal(t, "integer", schema.Field("id").Type)
	assert.Empty(t, schema.Field("category").Description)
	assert.Nil(t, schema.Field("dropped"))
}

func TestInferIsDeterministic(t *testing.T) {
	path := writeCSV(t, "id,category\n1,alpha\n2,beta\n3,alpha\n")

	first, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)
	second, err := tableschema.Infer(path, nil, tableschema.Options{})
	require.NoError(t, err)
	testutil.AssertEqualValues(t, first, second, "inferred schema")
}
