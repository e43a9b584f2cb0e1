package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanClipboardText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"html", "<html><body><p>Hello &amp; bye</p></body></html>", "Hello & bye"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanClipboardText(tt.input))
		})
	}
}

func TestCleanClipboardTextRTF(t *testing.T) {
	got := cleanClipboardText(`{\rtf1\ansi{\fonttbl\f0\fswiss Helvetica;}\f0\pard Hello world\par}`)
	assert.Contains(t, got, "Hello world")
	assert.NotContains(t, got, `\rtf1`)
}

func TestSplitTitle(t *testing.T) {
	title, desc := splitTitle("\n\n  Plan  \nstep one\nstep two\n")
	assert.Equal(t, "Plan", title)
	assert.Equal(t, "step one\nstep two", desc)

	title, desc = splitTitle("only")
	assert.Equal(t, "only", title)
	assert.Equal(t, "", desc)
}

func TestNodesOutline(t *testing.T) {
	nodes := []Node{
		{Title: "A", Description: "one\ntwo"},
		{Title: "B"},
	}
	assert.Equal(t, "A\n  one\n  two\nB", nodesOutline(nodes))
}
