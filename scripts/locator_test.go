package scripts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateOnePerPrefixInOrder(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"2_seed.sql":       []byte("INSERT INTO a VALUES (1);"),
		"1_schema.sql":     []byte("CREATE TABLE a (id int);"),
		"3_extra.SQL":      []byte("SELECT 1;"),
		"1_schema.sql.bak": []byte("junk"),
		"notes.txt":        []byte("hello"),
	})

	located, err := NewLocator(dir).Locate([]string{"1_", "2_", "3_"})
	require.NoError(t, err)
	require.Len(t, located.Scripts, 3)
	assert.Empty(t, located.Missing)

	assert.Equal(t, "1_", located.Scripts[0].Prefix)
	assert.Equal(t, "1_schema.sql", located.Scripts[0].Name())
	assert.Equal(t, "2_seed.sql", located.Scripts[1].Name())
	assert.Equal(t, "3_extra.SQL", located.Scripts[2].Name())
	assert.True(t, filepath.IsAbs(located.Scripts[0].Path))
}

func TestLocateTieBreakIsLexicographic(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"1_b_schema.sql": []byte("SELECT 2;"),
		"1_a_schema.sql": []byte("SELECT 1;"),
		"1_c_schema.sql": []byte("SELECT 3;"),
	})

	for i := 0; i < 3; i++ {
		located, err := NewLocator(dir).Locate([]string{"1_"})
		require.NoError(t, err)
		require.Len(t, located.Scripts, 1)
		assert.Equal(t, "1_a_schema.sql", located.Scripts[0].Name())
	}
}

func TestLocateMissingPrefixIsNotAnError(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{
		"1_schema.sql": []byte("SELECT 1;"),
		"3_data.sql":   []byte("SELECT 3;"),
	})

	located, err := NewLocator(dir).Locate([]string{"1_", "2_", "3_", "4_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2_", "4_"}, located.Missing)
	require.Len(t, located.Scripts, 2)
	assert.Equal(t, "3_", located.Scripts[1].Prefix)
}

func TestLocateIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "1_dir.sql"), 0o755))

	located, err := NewLocator(dir).Locate([]string{"1_"})
	require.NoError(t, err)
	assert.Empty(t, located.Scripts)
	assert.Equal(t, []string{"1_"}, located.Missing)
}

func TestLocateUnreadableDir(t *testing.T) {
	_, err := NewLocator(filepath.Join(t.TempDir(), "nope")).Locate([]string{"1_"})
	assert.Error(t, err)
}
