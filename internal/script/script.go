// Package script turns a document into the ordered narration lines the
// queue will speak. Markdown is walked block by block: headings, list
// items and quotes keep their role so callers can style or pace them
// differently, and code and raw HTML stay silent unless asked for.
package script

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Kind labels where a narration line came from.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindQuote
	KindCode
)

func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list item"
	case KindQuote:
		return "quote"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Line is one narration unit, at most one sentence long.
type Line struct {
	Text string
	Kind Kind
}

// Parser extracts narration lines from documents.
type Parser struct {
	md        goldmark.Markdown
	minLength int
	maxLength int
	readCode  bool
	abbrevs   map[string]struct{}
}

// Option is a functional option for configuring the parser.
type Option func(*Parser)

// WithMinLength sets the shortest line worth speaking, in bytes.
func WithMinLength(n int) Option {
	return func(p *Parser) {
		p.minLength = n
	}
}

// WithMaxLength sets the longest line passed to the speech engine, in
// bytes. Longer lines are cut at a rune boundary.
func WithMaxLength(n int) Option {
	return func(p *Parser) {
		p.maxLength = n
	}
}

// WithCodeBlocks includes code block content as narration lines.
func WithCodeBlocks(include bool) Option {
	return func(p *Parser) {
		p.readCode = include
	}
}

// NewParser creates a parser with default settings: code blocks
// skipped, lines between 3 and 1000 bytes.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		md:        goldmark.New(),
		minLength: 3,
		maxLength: 1000,
		abbrevs:   defaultAbbreviations(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts narration lines from markdown source, in document
// order. YAML frontmatter is metadata, not prose, and is dropped
// before parsing.
func (p *Parser) Parse(source []byte) []Line {
	source = stripFrontmatter(source)
	doc := p.md.Parser().Parse(text.NewReader(source))
	var lines []Line
	p.walkBlock(doc, source, KindParagraph, &lines)
	return lines
}

var frontmatterFence = regexp.MustCompile(`(?m)^---\r?\n`)

func stripFrontmatter(source []byte) []byte {
	fences := frontmatterFence.FindAllIndex(source, 2)
	if len(fences) < 2 || fences[0][0] != 0 {
		return source
	}
	return source[fences[1][1]:]
}

// ParseText splits plain, non-markdown text into narration lines.
func (p *Parser) ParseText(s string) []Line {
	var lines []Line
	p.emitSentences(&lines, s, KindParagraph)
	return lines
}

func (p *Parser) walkBlock(n ast.Node, source []byte, kind Kind, lines *[]Line) {
	switch b := n.(type) {
	case *ast.Heading:
		p.emit(lines, inlineText(b, source), KindHeading)

	case *ast.Paragraph:
		p.emitSentences(lines, inlineText(b, source), kind)

	case *ast.TextBlock:
		// Tight list items carry their text in a TextBlock.
		p.emitSentences(lines, inlineText(b, source), kind)

	case *ast.FencedCodeBlock:
		if p.readCode {
			p.emit(lines, blockText(b, source), KindCode)
		}

	case *ast.CodeBlock:
		if p.readCode {
			p.emit(lines, blockText(b, source), KindCode)
		}

	case *ast.HTMLBlock:
		// Markup is never spoken.

	case *ast.Blockquote:
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			p.walkBlock(c, source, KindQuote, lines)
		}

	case *ast.ListItem:
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			p.walkBlock(c, source, KindListItem, lines)
		}

	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			p.walkBlock(c, source, kind, lines)
		}
	}
}

// inlineText flattens a block's inline children to the text a voice
// would read: link labels without their targets, code spans plain,
// images as their alt text.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	collectInline(n, source, &b)
	return b.String()
}

func collectInline(n ast.Node, source []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.Image:
			b.WriteString(" Image: ")
			collectInline(t, source, b)
		case *ast.AutoLink:
			// Bare URLs are noise when spoken.
		case *ast.RawHTML:
			// Markup is never spoken.
		default:
			collectInline(c, source, b)
		}
	}
}

// blockText reads a block node's raw source lines.
func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(source))
		b.WriteByte(' ')
	}
	return b.String()
}

// emitSentences splits block text into sentences and emits each as its
// own line, so the queue can pace and cancel at sentence granularity.
func (p *Parser) emitSentences(lines *[]Line, s string, kind Kind) {
	for _, sent := range p.sentences(s) {
		p.emit(lines, sent, kind)
	}
}

// emit normalizes one line and appends it: whitespace collapsed, length
// bounds applied, terminal punctuation ensured for the speech engine.
func (p *Parser) emit(lines *[]Line, s string, kind Kind) {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) < p.minLength {
		return
	}
	if len(s) > p.maxLength {
		cut := p.maxLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = strings.TrimSpace(s[:cut])
		if s == "" {
			return
		}
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if !strings.ContainsRune(".!?:…", last) {
		s += "."
	}
	*lines = append(*lines, Line{Text: s, Kind: kind})
}

// sentences splits text at sentence stops, keeping abbreviations,
// decimals and ellipses whole.
func (p *Parser) sentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i := range runes {
		if !p.boundary(runes, i) {
			continue
		}
		if sent := strings.TrimSpace(string(runes[start : i+1])); sent != "" {
			out = append(out, sent)
		}
		start = i + 1
	}
	if start < len(runes) {
		if sent := strings.TrimSpace(string(runes[start:])); sent != "" {
			out = append(out, sent)
		}
	}
	return out
}

func (p *Parser) boundary(runes []rune, i int) bool {
	r := runes[i]
	if r != '.' && r != '!' && r != '?' {
		return false
	}
	if r == '.' {
		// An ellipsis reads as a pause, not an end.
		if (i > 0 && runes[i-1] == '.') || (i+1 < len(runes) && runes[i+1] == '.') {
			return false
		}
		if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			return false
		}
		if p.abbreviation(runes, i) {
			return false
		}
	}
	if i+1 >= len(runes) {
		return true
	}
	// A stop glued to the next token (example.com, v1.2) is not an end.
	if !unicode.IsSpace(runes[i+1]) {
		return false
	}
	next := i + 1
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	r = runes[next]
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\''
}

// abbreviation reports whether the word ending at the period in
// position i is a known abbreviation.
func (p *Parser) abbreviation(runes []rune, i int) bool {
	start := i - 1
	for start >= 0 && !unicode.IsSpace(runes[start]) {
		start--
	}
	word := strings.ToLower(string(runes[start+1 : i]))
	_, ok := p.abbrevs[word]
	return ok
}

func defaultAbbreviations() map[string]struct{} {
	words := []string{
		"mr", "mrs", "ms", "dr", "prof", "rev", "sr", "jr", "st",
		"vs", "etc", "e.g", "i.e", "cf", "approx",
		"inc", "ltd", "co", "corp", "dept", "fig",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
