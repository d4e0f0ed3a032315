// Package scan is the core's one in-tree implementation of the scanner
// entry point spec §6 lists as an external collaborator ("given UTF-8
// bytes and an optional binder+contexts, pushes scanned cells to the data
// stack"). Full tokenization depth is explicitly out of scope (spec §1);
// this is just enough of a scanner to let internal/feed exercise its
// "scanning text may only occur at fetch time" contract end-to-end.
//
// Adapted from the teacher's internal/lexer/scanner.go: the same
// start/current/line cursor fields and peek/advance/isAtEnd helpers (the
// teacher's match helper is folded into scanOne's switch here), reworked to build nested value.Array content (blocks and groups) instead
// of a flat token slice for a downstream AST parser.
package scan

import (
	"fmt"
	"unicode"
	"unsafe"

	"rebcore/internal/coreerr"
	"rebcore/internal/value"
)

// Scanner turns UTF-8 source text into a top-level value.Array of scanned
// cells, matching LOAD-style semantics: the whole source scans to
// completion in one call (spec §4.4: "Scanning always runs to completion
// for its source (no incremental scanning of partial text)").
type Scanner struct {
	source  string
	start   int
	current int
	line    int

	symbols *value.SymbolTable
	binder  *value.Binder
	bindCtx *value.Context
}

// New creates a Scanner over source. binder and bindCtx may both be nil,
// in which case scanned words are left Unbound; when both are given, every
// word scanned is bound into bindCtx via binder as it is produced (spec
// §4.4: "the scanner receives a Binder that the feed owns so that words in
// the scanned text may be bound into a supplied lexical context").
func New(source string, symbols *value.SymbolTable, binder *value.Binder, bindCtx *value.Context) *Scanner {
	return &Scanner{source: source, line: 1, symbols: symbols, binder: binder, bindCtx: bindCtx}
}

// Scan runs the scanner to completion and returns the top-level array of
// scanned cells.
func (s *Scanner) Scan() (*value.Array, error) {
	result, err := coreerr.TrapValue(func() []value.Cell {
		return s.scanSequence(0)
	})
	if err != nil {
		return nil, err
	}
	return value.NewArray(result), nil
}

// closeByte is the matching close bracket for an open bracket byte, or 0
// for the top level (no bracket, scan to end of input).
func (s *Scanner) scanSequence(closeByte byte) []value.Cell {
	var cells []value.Cell
	for {
		s.skipSpaceAndComments()
		if s.isAtEnd() {
			if closeByte != 0 {
				coreerr.Fail(coreerr.NeedNonVoid, "unterminated block/group in scanned source")
			}
			return cells
		}
		if closeByte != 0 && s.peek() == closeByte {
			s.advance()
			return cells
		}
		cells = append(cells, s.scanOne())
	}
}

func (s *Scanner) scanOne() value.Cell {
	c := s.peek()
	switch {
	case c == '[':
		s.advance()
		inner := s.scanSequence(']')
		var cell value.Cell
		cell.InitArray(value.KindBlock, value.NewArray(inner), value.Unbound)
		return cell
	case c == '(':
		s.advance()
		inner := s.scanSequence(')')
		var cell value.Cell
		cell.InitArray(value.KindGroup, value.NewArray(inner), value.Unbound)
		return cell
	case c == '"':
		return s.scanString()
	case c == '|':
		s.advance()
		var cell value.Cell
		cell.InitBar()
		return cell
	case isDigit(c) || (c == '-' && isDigit(s.peekAt(1))):
		head := s.scanNumber()
		if s.peek() == '/' {
			return s.scanPath(head)
		}
		return head
	case isWordStart(c):
		head := s.scanWordLike()
		if s.peek() == '/' && value.IsAnyWord(head.Kind()) {
			return s.scanPath(head)
		}
		return head
	default:
		coreerr.Fail(coreerr.BadBranchType, fmt.Sprintf("unexpected character %q while scanning", c))
		panic("unreachable")
	}
}

func (s *Scanner) scanString() value.Cell {
	s.advance() // opening quote
	start := s.current
	for !s.isAtEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.isAtEnd() {
		coreerr.Fail(coreerr.NeedNonVoid, "unterminated string in scanned source")
	}
	text := s.source[start:s.current]
	s.advance() // closing quote
	var cell value.Cell
	cell.InitString(text)
	return cell
}

func (s *Scanner) scanNumber() value.Cell {
	start := s.current
	if s.peek() == '-' {
		s.advance()
	}
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
		var cell value.Cell
		var f float64
		fmt.Sscanf(s.source[start:s.current], "%g", &f)
		cell.InitDecimal(f)
		return cell
	}
	var cell value.Cell
	var n int64
	fmt.Sscanf(s.source[start:s.current], "%d", &n)
	cell.InitInteger(n)
	return cell
}

// scanWordLike scans an identifier-shaped run and classifies it as a word,
// set-word (trailing colon), get-word (leading colon), or lit-word
// (leading tick), plus the true/false/null literal spellings.
func (s *Scanner) scanWordLike() value.Cell {
	leadColon := false
	leadTick := false
	switch s.peek() {
	case ':':
		leadColon = true
		s.advance()
	case '\'':
		leadTick = true
		s.advance()
	}
	start := s.current
	for isWordChar(s.peek()) {
		s.advance()
	}
	text := s.source[start:s.current]
	setWord := false
	if !leadColon && s.peek() == ':' {
		setWord = true
		s.advance()
	}

	switch text {
	case "true":
		var cell value.Cell
		cell.InitLogic(true)
		return cell
	case "false":
		var cell value.Cell
		cell.InitLogic(false)
		return cell
	case "null":
		var cell value.Cell
		cell.InitNull()
		return cell
	}

	sym := s.symbols.Intern(text)
	kind := value.KindWord
	switch {
	case leadColon:
		kind = value.KindGetWord
	case leadTick:
		kind = value.KindLitWord
	case setWord:
		kind = value.KindSetWord
	}

	var cell value.Cell
	cell.InitWord(kind, sym, value.Unbound)
	if s.binder != nil && s.bindCtx != nil {
		value.BindValuesCore(asSlice(&cell), s.bindCtx, value.BindCollectAny, s.binder)
	}
	return cell
}

// scanPath continues scanning a slash-separated path once head's trailing
// '/' has been spotted (spec §4.6 names paths as a scannable any-path
// kind; this is the minimal amount of path syntax needed to exercise that
// dispatch from scanned source, not a full path-literal grammar). head
// becomes step 0; further '/'-separated words, integers, and groups become
// subsequent steps until the separator run ends. A leading colon on head
// (`:obj/field`) makes the whole path a get-path; a trailing colon on the
// last step (`obj/field:`) makes it a set-path — either way the marked
// step itself is normalized back to a plain word inside the steps array.
func (s *Scanner) scanPath(head value.Cell) value.Cell {
	pathKind := value.KindPath
	if head.Kind() == value.KindGetWord {
		pathKind = value.KindGetPath
		head = plainWordOf(head)
	}

	steps := []value.Cell{head}
	for s.peek() == '/' {
		s.advance()
		switch {
		case isDigit(s.peek()):
			steps = append(steps, s.scanNumber())
		case s.peek() == '(':
			s.advance()
			inner := s.scanSequence(')')
			var cell value.Cell
			cell.InitArray(value.KindGroup, value.NewArray(inner), value.Unbound)
			steps = append(steps, cell)
		case isWordStart(s.peek()):
			steps = append(steps, s.scanWordLike())
		default:
			coreerr.Fail(coreerr.BadBranchType, "malformed path step")
		}
	}

	last := len(steps) - 1
	if steps[last].Kind() == value.KindSetWord {
		pathKind = value.KindSetPath
		steps[last] = plainWordOf(steps[last])
	}

	var cell value.Cell
	cell.InitPath(pathKind, value.NewArray(steps), value.Unbound)
	return cell
}

func plainWordOf(w value.Cell) value.Cell {
	var c value.Cell
	c.InitWord(value.KindWord, w.Spelling(), w.Binding())
	return c
}

func asSlice(c *value.Cell) []value.Cell {
	// BindValuesCore takes a slice; a single scanned word is bound in
	// place by wrapping it in a length-1 view onto itself.
	return unsafe.Slice(c, 1)
}

func (s *Scanner) skipSpaceAndComments() {
	for !s.isAtEnd() {
		c := s.peek()
		switch {
		case c == '\n':
			s.line++
			s.advance()
		case unicode.IsSpace(rune(c)):
			s.advance()
		case c == ';':
			for !s.isAtEnd() && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

func (s *Scanner) advance() byte {
	s.current++
	return s.source[s.current-1]
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekAt(offset int) byte {
	if s.current+offset >= len(s.source) {
		return 0
	}
	return s.source[s.current+offset]
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.source) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordStart(c byte) bool {
	return unicode.IsLetter(rune(c)) || c == '_' || c == ':' || c == '\'' ||
		c == '+' || c == '-' || c == '*' || c == '=' || c == '<' || c == '>' || c == '?' || c == '!'
}

// isWordChar accepts everything isWordStart does except ':'. Colon is only
// ever meaningful at a word's edges (a leading colon marks a get-word, a
// trailing one marks a set-word); scanWordLike special-cases both of those
// before this function ever runs over the identifier's interior, so a colon
// reached here must terminate the run rather than be swallowed into the
// spelling.
func isWordChar(c byte) bool {
	return c != ':' && (isWordStart(c) || isDigit(c))
}
