package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/foodgram/internal/schema"
)

func TestRenderPlan(t *testing.T) {
	var buf bytes.Buffer
	renderPlan(&buf, &schema.Plan{})
	assert.Equal(t, "-- schema is up to date\n", buf.String())

	plan := &schema.Plan{
		Changes: []atlas.Change{
			&atlas.DropTable{T: &atlas.Table{Name: "old_carts"}},
			&atlas.AddTable{T: &atlas.Table{Name: "carts"}},
		},
		Statements: []string{`DROP TABLE "old_carts"`, `CREATE TABLE "carts" ("id" bigserial);`},
	}

	buf.Reset()
	renderPlan(&buf, plan)
	assert.Equal(t, "-- DESTRUCTIVE: Drop table old_carts\n"+
		"DROP TABLE \"old_carts\";\n"+
		"CREATE TABLE \"carts\" (\"id\" bigserial);\n", buf.String())
}

func TestCheckDestructive(t *testing.T) {
	safe := &schema.Plan{Changes: []atlas.Change{&atlas.AddTable{T: &atlas.Table{Name: "tags"}}}}
	assert.NoError(t, checkDestructive(safe, false))

	unsafe := &schema.Plan{Changes: []atlas.Change{&atlas.DropTable{T: &atlas.Table{Name: "favorites"}}}}
	err := checkDestructive(unsafe, false)
	assert.ErrorContains(t, err, "1 destructive change(s): Drop table favorites")
	assert.NoError(t, checkDestructive(unsafe, true))
}

func TestGenerateCommand(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	t.Chdir(t.TempDir())

	out, err := execute(t, "generate", "--output", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS recipe_ingredients")

	out, err = execute(t, "generate", "--output", "schema.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema written to:")

	data, err := os.ReadFile(filepath.Join(".", "schema.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS favorites")
}
