package state_test

import (
	"os"
	"testing"

	"git.sr.ht/~anton/crux/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImportsEnvironAsExported(t *testing.T) {
	os.Setenv("CRUX_TEST_VAR", "hello")
	defer os.Unsetenv("CRUX_TEST_VAR")

	s := state.New("test", []string{"arg1", "arg2"})
	v, ok := s.Get("CRUX_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Contains(t, s.Environ(), "CRUX_TEST_VAR=hello")
	assert.Equal(t, []string{"arg1", "arg2"}, s.Positional())
}

func TestSetIsFrameLocal(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "outer")

	pop := s.PushFrame(nil)
	_, ok := s.Get("x")
	assert.True(t, ok, "inner frame should see outer frame's variable by fallthrough")

	s.Set("x", "inner")
	v, _ := s.Get("x")
	assert.Equal(t, "inner", v)
	pop()

	v, _ = s.Get("x")
	assert.Equal(t, "outer", v, "popping the frame should restore the outer binding")
}

func TestSetGlobalIsVisibleRegardlessOfFrame(t *testing.T) {
	s := state.New("test", nil)
	pop := s.PushFrame([]string{"a"})
	s.SetGlobal("G", "v", true)
	pop()

	v, ok := s.Get("G")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Contains(t, s.Environ(), "G=v")
}

func TestExportMarksExistingVariable(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "1")
	assert.NotContains(t, s.Environ(), "x=1")
	s.Export("x")
	assert.Contains(t, s.Environ(), "x=1")
}

func TestUnsetRemovesFromWhicheverFrameHoldsIt(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "1")
	pop := s.PushFrame(nil)
	s.Unset("x")
	_, ok := s.Get("x")
	assert.False(t, ok)
	pop()
	_, ok = s.Get("x")
	assert.False(t, ok)
}

func TestPositionalFallsThroughWhenFrameNeverRebinds(t *testing.T) {
	s := state.New("test", []string{"top-level"})
	pop := s.PushFrame(nil)
	assert.Equal(t, []string{"top-level"}, s.Positional())
	pop()
}

func TestSetPositionalRebindsCurrentFrameOnly(t *testing.T) {
	s := state.New("test", []string{"outer"})
	pop := s.PushFrame([]string{"inner1", "inner2"})
	assert.Equal(t, []string{"inner1", "inner2"}, s.Positional())
	s.SetPositional([]string{"changed"})
	assert.Equal(t, []string{"changed"}, s.Positional())
	pop()
	assert.Equal(t, []string{"outer"}, s.Positional())
}

func TestGenerationIncrementsOnWrite(t *testing.T) {
	s := state.New("test", nil)
	g0 := s.Generation
	s.Set("x", "1")
	assert.Greater(t, s.Generation, g0)
}

func TestGetCacheInvalidatesOnWrite(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "1")

	v, ok := s.Get("x") // populates the read cache
	require.True(t, ok)
	assert.Equal(t, "1", v)

	s.Set("x", "2")
	v, ok = s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "2", v, "a stale cached read must not survive a write")
}

func TestGetCacheRemembersUnsetVariables(t *testing.T) {
	s := state.New("test", nil)
	_, ok := s.Get("nope")
	assert.False(t, ok)

	s.Set("other", "1") // unrelated write still must not spuriously "set" nope
	_, ok = s.Get("nope")
	assert.False(t, ok)
}

func TestCachedArithRoundTripsAndInvalidatesOnWrite(t *testing.T) {
	s := state.New("test", nil)
	_, ok := s.CachedArith("1+1")
	assert.False(t, ok, "nothing stored yet")

	s.StoreArith("1+1", 2)
	v, ok := s.CachedArith("1+1")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)

	s.Set("x", "1")
	_, ok = s.CachedArith("1+1")
	assert.False(t, ok, "any variable write must invalidate the arithmetic cache too")
}

func TestFlagsRendersActiveOptionsInOrder(t *testing.T) {
	s := state.New("test", nil)
	s.Options['x'] = true
	s.Options['e'] = true
	assert.Equal(t, "ex", s.Flags())
}

func TestForkIsIndependentOfOriginal(t *testing.T) {
	s := state.New("test", nil)
	s.Set("x", "orig")
	f := s.Fork()

	f.Set("x", "forked")
	v, _ := s.Get("x")
	assert.Equal(t, "orig", v, "writing through the fork must not affect the original")

	f.LastStatus = 42
	assert.NotEqual(t, 42, s.LastStatus)
}

func TestForkSharesFunctionTable(t *testing.T) {
	s := state.New("test", nil)
	f := s.Fork()
	s.Functions["greet"] = nil
	_, ok := f.Functions["greet"]
	assert.True(t, ok, "function bodies are immutable and shared across forks, not copied")
}
