package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects executed command lines.
type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) exec(_ context.Context, args []string) error {
	r.calls = append(r.calls, args)
	return r.err
}

func newTestREPL(input string, rec *recorder) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	r := New(rec.exec,
		WithIO(strings.NewReader(input), out),
		WithCompleter(NewCompleter([]string{"key", "key get", "key insert", "stats"})),
	)
	return r, out
}

func TestREPL_Run_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\n"},
		{"quit command", "quit\n"},
		{"EOF", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r, _ := newTestREPL(tt.input, rec)
			require.NoError(t, r.Run(context.Background()))
			assert.Empty(t, rec.calls)
		})
	}
}

func TestREPL_Run_EmptyLines(t *testing.T) {
	rec := &recorder{}
	r, out := newTestREPL("\n\n\nexit\n", rec)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 4, strings.Count(out.String(), DefaultPrompt))
	assert.Empty(t, rec.calls)
}

func TestREPL_Run_Executes(t *testing.T) {
	rec := &recorder{}
	r, _ := newTestREPL("key insert alpha 'one two'\nstats\nexit\n", rec)
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, []string{"key", "insert", "alpha", "one two"}, rec.calls[0])
	assert.Equal(t, []string{"stats"}, rec.calls[1])
	assert.Equal(t, []string{"key insert alpha 'one two'", "stats", "exit"}, r.History().Entries())
}

func TestREPL_Run_LastLineWithoutNewline(t *testing.T) {
	rec := &recorder{}
	r, _ := newTestREPL("stats", rec)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, [][]string{{"stats"}}, rec.calls)
}

func TestREPL_Run_ErrorsContinue(t *testing.T) {
	rec := &recorder{err: errors.New("boom")}
	r, out := newTestREPL("stats\n'open\nstats\n", rec)
	require.NoError(t, r.Run(context.Background()))

	assert.Len(t, rec.calls, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: boom"))
	assert.Contains(t, out.String(), "Error: unterminated ' quote")
}

func TestREPL_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newTestREPL("stats\n", &recorder{})
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestREPL_Builtins(t *testing.T) {
	rec := &recorder{}
	r, out := newTestREPL("stats\ncomplete key\nhistory\n", rec)
	require.NoError(t, r.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "key get\n")
	assert.Contains(t, text, "key insert\n")
	assert.Contains(t, text, "   1  stats\n")
	assert.Contains(t, text, "   2  complete key\n")
	assert.Len(t, rec.calls, 1)
}

func TestREPL_NoExecutor(t *testing.T) {
	out := &bytes.Buffer{}
	r := New(nil, WithIO(strings.NewReader("stats\n"), out), WithPrompt("> "))
	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "> Error: no executor configured")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "key get alpha", want: []string{"key", "get", "alpha"}},
		{line: "  key\tget   alpha  ", want: []string{"key", "get", "alpha"}},
		{line: `key insert "user 42" 'a "b"'`, want: []string{"key", "insert", "user 42", `a "b"`}},
		{line: `key insert k "say \"hi\""`, want: []string{"key", "insert", "k", `say "hi"`}},
		{line: `key insert k ""`, want: []string{"key", "insert", "k", ""}},
		{line: `key get a\ b`, want: []string{"key", "get", "a b"}},
		{line: `key get 'x`, wantErr: true},
		{line: `key get x\`, wantErr: true},
		{line: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Split(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
