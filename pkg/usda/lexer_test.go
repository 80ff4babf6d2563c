package usda

import (
	"testing"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeDeclaration(t *testing.T) {
	toks := Tokenize(`def Sphere "Ball" (references = @./a.usda@</Root>) {`)

	want := []struct {
		kind TokenKind
		text string
	}{
		{TokIdent, "def"},
		{TokIdent, "Sphere"},
		{TokString, "Ball"},
		{TokPunct, "("},
		{TokIdent, "references"},
		{TokPunct, "="},
		{TokAsset, "./a.usda"},
		{TokPath, "/Root"},
		{TokPunct, ")"},
		{TokPunct, "{"},
		{TokEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d: expected %s %q, got %s", i, w.kind, w.text, toks[i])
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []string{"1", "-2.5", "+.5", "1e3", "2.5E-4", "1.2.3", ".75"}
	for _, src := range tests {
		toks := Tokenize(src)
		if len(toks) != 2 || toks[0].Kind != TokNumber || toks[0].Text != src {
			t.Errorf("Tokenize(%q) = %v, want a single number", src, toks)
		}
	}
}

func TestTokenizeIdentifierWithNamespace(t *testing.T) {
	toks := Tokenize("xformOp:translate.timeSamples = {")
	if toks[0].Kind != TokIdent || toks[0].Text != "xformOp:translate.timeSamples" {
		t.Fatalf("expected namespaced identifier, got %s", toks[0])
	}
}

func TestTokenizeSampleKeys(t *testing.T) {
	got := kinds(Tokenize("0: 1.5, 24: 3,"))
	want := []TokenKind{TokNumber, TokPunct, TokNumber, TokPunct, TokNumber, TokPunct, TokNumber, TokPunct, TokEOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestTokenizeSkipsComments(t *testing.T) {
	toks := Tokenize("#usda 1.0\n# a comment\ndef")
	if len(toks) != 2 {
		t.Fatalf("expected def and EOF, got %v", toks)
	}
	if toks[0].Text != "def" || toks[0].Line != 3 || toks[0].Col != 1 {
		t.Errorf("expected def at 3:1, got %s", toks[0])
	}
}

func TestTokenizeStrings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"double"`, "double"},
		{`'single'`, "single"},
		{`"""triple
quoted"""`, "triple\nquoted"},
		{`"esc \" aped"`, `esc \" aped`},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.src)
		if toks[0].Kind != TokString || toks[0].Text != tt.want {
			t.Errorf("Tokenize(%q): expected string %q, got %s", tt.src, tt.want, toks[0])
		}
	}
}

func TestTokenizeUnterminated(t *testing.T) {
	toks := Tokenize("\"open\ndef")
	if toks[0].Kind != TokString || toks[0].Text != "open" {
		t.Errorf("expected unterminated string to end at newline, got %s", toks[0])
	}
	if toks[1].Text != "def" || toks[1].Line != 2 {
		t.Errorf("expected def on line 2, got %s", toks[1])
	}

	toks = Tokenize("@missing.usda\n}")
	if toks[0].Kind != TokAsset || toks[0].Text != "missing.usda" {
		t.Errorf("expected unterminated asset to end at newline, got %s", toks[0])
	}
}

func TestTokenizeEmpty(t *testing.T) {
	for _, src := range []string{"", "   \n\t ", "# only a comment"} {
		toks := Tokenize(src)
		if len(toks) != 1 || toks[0].Kind != TokEOF {
			t.Errorf("Tokenize(%q) = %v, want only EOF", src, toks)
		}
	}
}
