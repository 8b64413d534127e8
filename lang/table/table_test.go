package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
	"github.com/emberlang/ember/lang/table"
)

func newString(s string) *object.String {
	return &object.String{Chars: s, Hash: object.FNV1a(s)}
}

func TestSetGetDelete(t *testing.T) {
	tb := table.New()
	foo := newString("foo")

	isNew := tb.Set(foo, bytecode.Number(1))
	require.True(t, isNew)

	v, ok := tb.Get(foo)
	require.True(t, ok)
	require.Equal(t, 1.0, v.AsNumber())

	isNew = tb.Set(foo, bytecode.Number(2))
	require.False(t, isNew)
	v, ok = tb.Get(foo)
	require.True(t, ok)
	require.Equal(t, 2.0, v.AsNumber())

	require.True(t, tb.Delete(foo))
	_, ok = tb.Get(foo)
	require.False(t, ok)
	require.False(t, tb.Delete(foo))
}

func TestGetMissingOnEmptyTable(t *testing.T) {
	tb := table.New()
	_, ok := tb.Get(newString("nope"))
	require.False(t, ok)
}

func TestFindStringProbesByContent(t *testing.T) {
	tb := table.New()
	foobar := newString("foobar")
	tb.Set(foobar, bytecode.Bool(true))

	found := tb.FindString("foobar", object.FNV1a("foobar"))
	require.Same(t, foobar, found)

	require.Nil(t, tb.FindString("nope", object.FNV1a("nope")))
}

func TestDeleteLeavesTombstoneThatDoesNotBreakProbing(t *testing.T) {
	tb := table.New()
	// Force several entries into the same small table so some collide, then
	// delete one and confirm the others are still reachable.
	keys := make([]*object.String, 0, 20)
	for i := 0; i < 20; i++ {
		s := newString(string(rune('a' + i)))
		keys = append(keys, s)
		tb.Set(s, bytecode.Number(float64(i)))
	}

	tb.Delete(keys[0])

	for i, k := range keys {
		if i == 0 {
			continue
		}
		v, ok := tb.Get(k)
		require.True(t, ok, "key %d should still be found after deleting key 0", i)
		require.Equal(t, float64(i), v.AsNumber())
	}
}

func TestIterateVisitsAllLiveEntries(t *testing.T) {
	tb := table.New()
	a, b := newString("a"), newString("b")
	tb.Set(a, bytecode.Number(1))
	tb.Set(b, bytecode.Number(2))

	seen := map[string]float64{}
	tb.Iterate(func(key *object.String, v bytecode.Value) {
		seen[key.Chars] = v.AsNumber()
	})
	require.Equal(t, map[string]float64{"a": 1, "b": 2}, seen)
}

func TestRemoveWhiteDropsUnmarkedKeys(t *testing.T) {
	tb := table.New()
	marked := newString("marked")
	unmarked := newString("unmarked")
	tb.Set(marked, bytecode.Bool(true))
	tb.Set(unmarked, bytecode.Bool(true))

	marked.Mark()

	tb.RemoveWhite()

	_, ok := tb.Get(marked)
	require.True(t, ok)
	_, ok = tb.Get(unmarked)
	require.False(t, ok)
}

func TestGrowthPreservesAllEntries(t *testing.T) {
	tb := table.New()
	const n = 200
	keys := make([]*object.String, n)
	for i := 0; i < n; i++ {
		keys[i] = newString(string(rune(i)) + "-key")
		tb.Set(keys[i], bytecode.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tb.Get(k)
		require.True(t, ok)
		require.Equal(t, float64(i), v.AsNumber())
	}
}
