package parsers

import (
	"strings"
	"testing"
)

func TestTextParser_Parse(t *testing.T) {
	p := NewTextParser()

	text, err := p.Parse(strings.NewReader("hello 世界"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if text != "hello 世界" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextParser_RejectsInvalidUTF8(t *testing.T) {
	p := NewTextParser()

	if _, err := p.Parse(strings.NewReader("ok\xff\xfebad")); err == nil {
		t.Fatalf("expected error for invalid UTF-8")
	}
}

func TestTextParser_CanParse(t *testing.T) {
	p := NewTextParser()
	if !p.CanParse(".txt") || !p.CanParse(".TXT") {
		t.Fatalf("expected .txt to be supported")
	}
	if p.CanParse(".pdf") || p.CanParse(".md") {
		t.Fatalf("unexpected extension accepted")
	}
}

func TestPDFParser_RejectsCorruptFile(t *testing.T) {
	p := NewPDFParser()

	if _, err := p.Parse(strings.NewReader("this is not a pdf")); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestRegistry_DispatchesByExtension(t *testing.T) {
	r := NewParserRegistry()

	text, err := r.Parse("notes.txt", strings.NewReader("plain content"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if text != "plain content" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestRegistry_UnsupportedExtension(t *testing.T) {
	r := NewParserRegistry()

	if _, err := r.Parse("slides.pptx", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}
