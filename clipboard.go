package main

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
)

// Clipboard is the system text clipboard.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// nodesOutline is the plain-text form of copied nodes: one title per
// line, descriptions indented beneath.
func nodesOutline(nodes []Node) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(n.Title)
		if n.Description == "" {
			continue
		}
		for _, line := range strings.Split(n.Description, "\n") {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
	}
	return b.String()
}

// splitTitle turns pasted text into a node title (first non-empty line)
// and description (the rest).
func splitTitle(text string) (title, description string) {
	text = strings.Trim(text, "\n")
	first, rest, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(first), strings.TrimSpace(rest)
}

func isRTF(text string) bool {
	return strings.HasPrefix(text, "{\\rtf") || strings.Contains(text, "\\rtf1")
}

func isHTML(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "<") &&
		(strings.Contains(text, "<html") || strings.Contains(text, "<body") || strings.Contains(text, "<div"))
}

func extractTextFromRTF(rtf string) string {
	var result strings.Builder
	result.Grow(len(rtf))
	bytes := []byte(rtf)

	for i := 0; i < len(bytes); i++ {
		b := bytes[i]
		if b == '{' || b == '}' {
			continue
		}
		if b != '\\' {
			if b >= 32 && b < 127 || b == '\n' || b == '\t' {
				result.WriteByte(b)
			}
			continue
		}
		if i+1 >= len(bytes) {
			break
		}
		next := bytes[i+1]
		switch {
		case next == '\'' && i+3 < len(bytes):
			if val, err := strconv.ParseUint(string(bytes[i+2:i+4]), 16, 8); err == nil {
				result.WriteByte(byte(val))
				i += 3
			}
		case next == '\\' || next == '{' || next == '}':
			result.WriteByte(next)
			i++
		case next == '-':
			result.WriteByte('-')
			i++
		case next == '_':
			result.WriteByte(' ')
			i++
		case isASCIILetter(next):
			start := i + 1
			for i+1 < len(bytes) && isASCIILetter(bytes[i+1]) {
				i++
			}
			word := string(bytes[start : i+1])
			for i+1 < len(bytes) && (bytes[i+1] == '-' || bytes[i+1] >= '0' && bytes[i+1] <= '9') {
				i++
			}
			if i+1 < len(bytes) && bytes[i+1] == ' ' {
				i++
			}
			switch word {
			case "par", "line":
				result.WriteByte('\n')
			case "tab":
				result.WriteByte('\t')
			}
		}
	}
	return result.String()
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

var htmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

func extractTextFromHTML(html string) string {
	var result strings.Builder
	result.Grow(len(html))
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return htmlEntities.Replace(result.String())
}

// cleanClipboardText strips rich-text wrappers and control characters and
// normalizes line endings.
func cleanClipboardText(text string) string {
	if text == "" {
		return text
	}
	switch {
	case isRTF(text):
		text = extractTextFromRTF(text)
	case isHTML(text):
		text = extractTextFromHTML(text)
	}
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\r' || r == '\t' || r >= 32 {
			result.WriteRune(r)
		}
	}
	normalized := strings.ReplaceAll(result.String(), "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\r", "\n")
}
