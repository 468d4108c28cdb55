package table

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/crux/pkg/value"
)

// testKey is a minimal Key implementation for exercising the table without
// depending on package object.
type testKey struct {
	bytes string
	hash  uint32
}

func (k testKey) Bytes() string { return k.bytes }
func (k testKey) Hash() uint32  { return k.hash }

func fnvHash(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

func key(s string) testKey {
	return testKey{bytes: s, hash: fnvHash(s)}
}

func TestSetAndGet(t *testing.T) {
	tb := New()

	isNew := tb.Set(key("a"), value.NumberVal(1))
	require.True(t, isNew)

	v, ok := tb.Get(key("a"))
	require.True(t, ok)
	require.Equal(t, float64(1), v.Number)
}

func TestSetOverwriteIsNotNew(t *testing.T) {
	tb := New()
	tb.Set(key("a"), value.NumberVal(1))

	isNew := tb.Set(key("a"), value.NumberVal(2))
	require.False(t, isNew)

	v, _ := tb.Get(key("a"))
	require.Equal(t, float64(2), v.Number)
}

func TestDeleteThenGetMisses(t *testing.T) {
	tb := New()
	tb.Set(key("a"), value.NumberVal(1))

	require.True(t, tb.Delete(key("a")))
	_, ok := tb.Get(key("a"))
	require.False(t, ok)

	require.False(t, tb.Delete(key("a")))
}

func TestTombstoneDoesNotBreakProbing(t *testing.T) {
	tb := New()
	a, b := key("a"), key("b")

	tb.Set(a, value.NumberVal(1))
	tb.Set(b, value.NumberVal(2))
	tb.Delete(a)

	v, ok := tb.Get(b)
	require.True(t, ok)
	require.Equal(t, float64(2), v.Number)
}

func TestGrowthRehashesLiveEntries(t *testing.T) {
	tb := New()
	for i := 0; i < 50; i++ {
		tb.Set(key(strconv.Itoa(i)), value.NumberVal(float64(i)))
	}
	require.Equal(t, 50, tb.Count())
	for i := 0; i < 50; i++ {
		v, ok := tb.Get(key(strconv.Itoa(i)))
		require.True(t, ok)
		require.Equal(t, float64(i), v.Number)
	}
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := New()
	src.Set(key("a"), value.NumberVal(1))
	src.Set(key("b"), value.NumberVal(2))
	src.Delete(key("b"))

	dst := New()
	dst.AddAll(src)

	_, ok := dst.Get(key("a"))
	require.True(t, ok)
	_, ok = dst.Get(key("b"))
	require.False(t, ok)
}

func TestFindString(t *testing.T) {
	tb := New()
	a := key("hello")
	tb.Set(a, value.NilVal())

	found, ok := tb.FindString("hello", a.Hash())
	require.True(t, ok)
	require.Equal(t, "hello", found.Bytes())

	_, ok = tb.FindString("goodbye", fnvHash("goodbye"))
	require.False(t, ok)
}

func TestEachVisitsOnlyLiveEntries(t *testing.T) {
	tb := New()
	tb.Set(key("a"), value.NumberVal(1))
	tb.Set(key("b"), value.NumberVal(2))
	tb.Delete(key("b"))

	seen := map[string]bool{}
	tb.Each(func(k Key, v value.Value) {
		seen[k.Bytes()] = true
	})
	require.Equal(t, map[string]bool{"a": true}, seen)
}
