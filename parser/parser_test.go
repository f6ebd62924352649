package parser

import (
	"testing"

	"git.sr.ht/~anton/crux/ast"
)

func firstCommand(t *testing.T, n ast.Node) *ast.Command {
	t.Helper()
	list, ok := n.(*ast.List)
	if !ok || len(list.Items) == 0 {
		t.Fatalf("expected a non-empty *ast.List, got %T", n)
	}
	cmd, ok := list.Items[0].(*ast.Command)
	if !ok {
		t.Fatalf("expected *ast.Command (single-stage pipelines collapse), got %T", list.Items[0])
	}
	return cmd
}

func TestParseSimpleCommand(t *testing.T) {
	n, err := ParseProgram("echo hi\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cmd := firstCommand(t, n)
	if cmd.NameWord == nil || cmd.NameWord.Value != "echo" {
		t.Fatalf("got NameWord %+v", cmd.NameWord)
	}
	if len(cmd.ArgWords) != 1 || cmd.ArgWords[0].Value != "hi" {
		t.Fatalf("got ArgWords %+v", cmd.ArgWords)
	}
}

func TestParsePipeline(t *testing.T) {
	n, err := ParseProgram("a | b | c\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	list := n.(*ast.List)
	pl := list.Items[0].(*ast.Pipeline)
	if len(pl.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(pl.Stages))
	}
}

func TestParseIf(t *testing.T) {
	n, err := ParseProgram("if true; then echo a; else echo b; fi\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	list := n.(*ast.List)
	if _, ok := list.Items[0].(*ast.Pipeline); ok {
		t.Fatalf("expected *ast.If wrapped directly, got pipeline")
	}
}

func TestResumableEquivalence(t *testing.T) {
	whole, err := ParseProgram("if true; then\n  echo ok\nfi\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p := New()
	p.Resumable = true
	var got ast.Node
	for _, chunk := range []string{"if true; then\n", "  echo ok\n", "fi\n"} {
		node, complete, ferr := p.Feed(chunk)
		if ferr != nil {
			t.Fatalf("unexpected error: %s", ferr)
		}
		if complete {
			got = node
		}
	}
	if got == nil {
		t.Fatalf("resumable parse never completed")
	}
	if len(got.(*ast.List).Items) != len(whole.(*ast.List).Items) {
		t.Fatalf("resumable parse produced a different shape than single-shot parse")
	}
}

func TestIncompleteInputAsksForMore(t *testing.T) {
	p := New()
	p.Resumable = true
	_, complete, err := p.Feed("echo \"unterminated\n")
	if err != nil {
		t.Fatalf("unexpected hard error: %s", err)
	}
	if complete {
		t.Fatalf("expected incomplete, got a completed parse")
	}
}

func TestParseRedirectionWithExplicitFD(t *testing.T) {
	n, err := ParseProgram("cmd 2>file\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cmd := firstCommand(t, n)
	if len(cmd.ArgWords) != 0 {
		t.Fatalf("fd digit leaked into ArgWords: %+v", cmd.ArgWords)
	}
	if len(cmd.Redirs) != 1 {
		t.Fatalf("expected 1 redirection, got %d", len(cmd.Redirs))
	}
	r := cmd.Redirs[0]
	if r.FD != 2 {
		t.Fatalf("expected FD 2, got %d", r.FD)
	}
	if r.Op != ast.RedirWrite {
		t.Fatalf("expected RedirWrite, got %v", r.Op)
	}
	if r.Target.Value != "file" {
		t.Fatalf("expected target %q, got %q", "file", r.Target.Value)
	}
}

func TestParseRedirectionDupFD(t *testing.T) {
	n, err := ParseProgram("cmd 2>&1\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cmd := firstCommand(t, n)
	if len(cmd.ArgWords) != 0 {
		t.Fatalf("fd digit leaked into ArgWords: %+v", cmd.ArgWords)
	}
	if len(cmd.Redirs) != 1 {
		t.Fatalf("expected 1 redirection, got %d", len(cmd.Redirs))
	}
	r := cmd.Redirs[0]
	if r.FD != 2 || r.Op != ast.RedirDupOut || r.Target.Value != "1" {
		t.Fatalf("got %+v", r)
	}
}

func TestParseRedirectionWithoutFDDefaultsToMinusOne(t *testing.T) {
	n, err := ParseProgram("cmd >file\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cmd := firstCommand(t, n)
	if len(cmd.Redirs) != 1 || cmd.Redirs[0].FD != -1 {
		t.Fatalf("got %+v", cmd.Redirs)
	}
}

func TestParseDigitArgumentNotFollowedByRedirStaysAnArgument(t *testing.T) {
	n, err := ParseProgram("echo 2 3\n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cmd := firstCommand(t, n)
	if cmd.NameWord == nil || cmd.NameWord.Value != "echo" {
		t.Fatalf("got NameWord %+v", cmd.NameWord)
	}
	if len(cmd.ArgWords) != 2 || cmd.ArgWords[0].Value != "2" || cmd.ArgWords[1].Value != "3" {
		t.Fatalf("got ArgWords %+v", cmd.ArgWords)
	}
}
