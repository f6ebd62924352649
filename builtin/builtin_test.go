package builtin_test

import (
	"bytes"
	"testing"

	"git.sr.ht/~anton/crux/builtin"
	"git.sr.ht/~anton/crux/exec"
	"git.sr.ht/~anton/crux/host"
	"git.sr.ht/~anton/crux/state"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShell() *exec.Shell {
	s := state.New("test", nil)
	h := host.New(afero.NewMemMapFs(), builtin.Table)
	return exec.New(s, h)
}

func TestTableRegistersEveryBuiltin(t *testing.T) {
	for _, name := range []string{
		"cd", "echo", "true", "false", "read", "set", "export", "unset",
		"exit", "return", "break", "continue", "shift", "pwd", "cmd",
	} {
		_, ok := builtin.Table[name]
		assert.True(t, ok, "expected %q to be registered", name)
	}
}

func TestEchoJoinsArgsWithSpace(t *testing.T) {
	sh := newShell()
	b := builtin.Table["echo"]
	var out bytes.Buffer
	code, err := b(sh, []string{"echo", "a", "b", "c"}, nil, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a b c\n", out.String())
}

func TestTrueAndFalseStatus(t *testing.T) {
	sh := newShell()
	var out, errOut bytes.Buffer

	code, err := builtin.Table["true"](sh, []string{"true"}, nil, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = builtin.Table["false"](sh, []string{"false"}, nil, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestTrueWarnsOnIgnoredArguments(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	_, err := builtin.Table["true"](sh, []string{"true", "extra"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "ignored")
}

func TestSetBindsAndUnsetsByName(t *testing.T) {
	sh := newShell()
	var out, errOut bytes.Buffer

	code, err := builtin.Table["set"](sh, []string{"set", "greeting", "hello", "world"}, nil, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	v, ok := sh.State.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello world", v)

	code, err = builtin.Table["set"](sh, []string{"set", "greeting"}, nil, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	_, ok = sh.State.Get("greeting")
	assert.False(t, ok)
}

func TestSetRejectsInvalidName(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	code, err := builtin.Table["set"](sh, []string{"set", "1bad", "v"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestExportMarksForEnviron(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	sh.State.Set("x", "1")

	code, err := builtin.Table["export"](sh, []string{"export", "x"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, sh.State.Environ(), "x=1")
}

func TestExportWithInlineAssignment(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	code, err := builtin.Table["export"](sh, []string{"export", "y=2"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	v, ok := sh.State.Get("y")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Contains(t, sh.State.Environ(), "y=2")
}

func TestUnsetRemovesVariable(t *testing.T) {
	sh := newShell()
	sh.State.Set("z", "v")
	_, err := builtin.Table["unset"](sh, []string{"unset", "z"}, nil, nil, nil)
	require.NoError(t, err)
	_, ok := sh.State.Get("z")
	assert.False(t, ok)
}

func TestShiftConsumesPositionalParameters(t *testing.T) {
	sh := newShell()
	sh.State.SetPositional([]string{"a", "b", "c"})
	var errOut bytes.Buffer
	code, err := builtin.Table["shift"](sh, []string{"shift", "2"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"c"}, sh.State.Positional())
}

func TestShiftBeyondCountIsAnError(t *testing.T) {
	sh := newShell()
	sh.State.SetPositional([]string{"a"})
	var errOut bytes.Buffer
	code, err := builtin.Table["shift"](sh, []string{"shift", "5"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestExitReturnsControlFlowError(t *testing.T) {
	sh := newShell()
	code, err := builtin.Table["exit"](sh, []string{"exit", "9"}, nil, nil, nil)
	assert.Equal(t, 9, code)
	assert.Error(t, err, "exit must signal the tree-walker via an error, not just a return code")
}

func TestBreakAndContinueDefaultToOneLevel(t *testing.T) {
	sh := newShell()
	_, err := builtin.Table["break"](sh, []string{"break"}, nil, nil, nil)
	assert.Equal(t, exec.Break(1), err)

	_, err = builtin.Table["continue"](sh, []string{"continue"}, nil, nil, nil)
	assert.Equal(t, exec.Continue(1), err)
}

func TestReturnUsesLastStatusWhenNoArgument(t *testing.T) {
	sh := newShell()
	sh.State.LastStatus = 5
	code, err := builtin.Table["return"](sh, []string{"return"}, nil, nil, nil)
	assert.Equal(t, 5, code)
	assert.Equal(t, exec.Return(5), err)
}

func TestCmdWithoutArgumentsPrintsUsage(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	code, err := builtin.Table["cmd"](sh, []string{"cmd"}, nil, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "usage")
}

func TestReadSplitsOnDelimiterAndBindsVariable(t *testing.T) {
	sh := newShell()
	var errOut bytes.Buffer
	in := bytes.NewBufferString("one\n")
	code, err := builtin.Table["read"](sh, []string{"read", "-d", "\n", "line"}, in, nil, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	v, ok := sh.State.Get("line")
	require.True(t, ok)
	assert.Equal(t, "one", v)
}
