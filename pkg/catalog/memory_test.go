package catalog_test

import (
	"sync"
	"testing"

	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(name string, cols ...catalog.Column) *catalog.Table {
	return &catalog.Table{Name: name, Columns: cols}
}

func intCol(name string) catalog.Column {
	return catalog.Column{Name: name, Type: core.TypeInt}
}

func TestMemory_AddLookup(t *testing.T) {
	mem := catalog.NewMemory()
	require.NoError(t, mem.AddTable(table("table1", intCol("value"), intCol("value2"))))
	require.NoError(t, mem.AddView(&catalog.View{Name: "v", Query: "SELECT value FROM table1"}))

	e, ok := mem.Lookup("table1")
	require.True(t, ok)
	tbl, ok := e.(*catalog.Table)
	require.True(t, ok)
	assert.Equal(t, []string{"value", "value2"}, []string{tbl.Columns[0].Name, tbl.Columns[1].Name})

	e, ok = mem.Lookup("v")
	require.True(t, ok)
	assert.IsType(t, &catalog.View{}, e)
	assert.Equal(t, "v", e.EntryName())

	_, ok = mem.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, 2, mem.Len())
	assert.Equal(t, []string{"table1", "v"}, mem.Names())
}

func TestMemory_Validation(t *testing.T) {
	tests := []struct {
		name  string
		entry *catalog.Table
		want  error
	}{
		{"empty name", table("", intCol("a")), catalog.ErrEmptyName},
		{"duplicate column", table("t", intCol("a"), intCol("a")), catalog.ErrDuplicateColumn},
		{"null column type", table("t", catalog.Column{Name: "a", Type: core.TypeNone}), catalog.ErrInvalidType},
		{"empty column name", table("t", intCol("")), catalog.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catalog.NewMemory().AddTable(tt.entry)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	err := catalog.NewMemory().AddView(&catalog.View{Name: "v"})
	assert.ErrorIs(t, err, catalog.ErrEmptyQuery)
}

func TestMemory_ReplaceAndRemove(t *testing.T) {
	mem := catalog.NewMemory()
	require.NoError(t, mem.AddTable(table("t", intCol("a"))))
	require.NoError(t, mem.AddView(&catalog.View{Name: "t", Query: "SELECT 1"}))

	e, _ := mem.Lookup("t")
	assert.IsType(t, &catalog.View{}, e, "later entries replace earlier ones")

	assert.True(t, mem.Remove("t"))
	assert.False(t, mem.Remove("t"))
	assert.Zero(t, mem.Len())

	other := catalog.NewMemory()
	require.NoError(t, other.AddTable(table("x", intCol("a"))))
	mem.Replace(other)
	assert.Equal(t, []string{"x"}, mem.Names())
}

func TestMemory_DatasetTables(t *testing.T) {
	mem := catalog.NewMemory()
	for _, name := range []string{"ds.b", "ds.a", "other.c", "ds_not", "plain"} {
		require.NoError(t, mem.AddTable(table(name, intCol("x"))))
	}
	assert.Equal(t, []string{"a", "b"}, mem.DatasetTables("ds"))
	assert.Empty(t, mem.DatasetTables("missing"))
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	mem := catalog.NewMemory()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = mem.AddTable(table(string(rune('a'+i)), intCol("x")))
		}()
		go func() {
			defer wg.Done()
			mem.Lookup("a")
			mem.Names()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, mem.Len())
}
