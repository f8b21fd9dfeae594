package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.creack.net/stackvm/op"
)

type stateFn func(*lexer) stateFn

const eof = -1

type itemType int

const (
	itemError itemType = iota // Error occurred; value is text of error.
	itemNewline
	itemIdentifier
	itemNumber
	itemComment
	itemRawString // Raw string, including quotes.
	itemLabel     // Label definition, without the trailing ':'.
	itemDirective
	itemEOF // End of the input.
)

func (it itemType) String() string {
	switch it {
	case itemError:
		return "<error>"
	case itemNewline:
		return "<newline>"
	case itemIdentifier:
		return "<identifier>"
	case itemNumber:
		return "<number>"
	case itemComment:
		return "<comment>"
	case itemRawString:
		return "<raw string>"
	case itemLabel:
		return "<label>"
	case itemDirective:
		return "<directive>"
	case itemEOF:
		return "<eof>"
	default:
		return fmt.Sprintf("<unknown token %d>", it)
	}
}

// isEOL reports whether the item ends a statement.
// Comments run to the end of the line so they end it as well.
func (it itemType) isEOL() bool {
	return it == itemNewline || it == itemEOF || it == itemComment
}

type item struct {
	typ  itemType // The type of this item.
	pos  Pos      // The start position, in bytes, of this item in the input string.
	val  string   // The value of this item.
	line int      // The line number at the start of this item.
	col  int      // The column, in bytes, starting at 1.
}

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case i.typ == itemNewline:
		return "'\\n'"
	case len(i.val) > 10:
		return fmt.Sprintf("%s %.10q...", i.typ, i.val)
	}
	return fmt.Sprintf("%s %q", i.typ, i.val)
}

type Pos int

// lexer holds the state of the scanner.
type lexer struct {
	name      string // The name of the input; used only for error reports.
	input     string // The string being scanned.
	pos       Pos    // Current position in the input.
	start     Pos    // Start position of this item.
	atEOF     bool   // We have hit the end of input and returned eof.
	line      int    // 1+number of newlines seen.
	startLine int    // Start line of this item.
	item      item   // Item to return to parser.
}

// column returns the 1-based column of the given position.
func (l *lexer) column(pos Pos) int {
	return int(pos) - strings.LastIndexByte(l.input[:pos], '\n')
}

// errorf returns an error token and terminates the scan by passing
// back a nil pointer that will be the next state, terminating l.nextItem.
func (l *lexer) errorf(format string, args ...any) stateFn {
	l.item = item{itemError, l.start, fmt.Sprintf(format, args...), l.startLine, l.column(l.start)}
	l.start = 0
	l.pos = 0
	l.input = l.input[:0]
	return nil
}

// next returns the next rune in the input.
func (l *lexer) next() rune {
	if int(l.pos) >= len(l.input) {
		l.atEOF = true
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += Pos(w)
	if r == '\n' {
		l.line++
	}
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune.
func (l *lexer) backup() {
	if !l.atEOF && l.pos > 0 {
		r, w := utf8.DecodeLastRuneInString(l.input[:l.pos])
		l.pos -= Pos(w)
		// Correct newline count.
		if r == '\n' {
			l.line--
		}
	}
}

// thisItem returns the item at the current input point with the specified type
// and advances the input.
func (l *lexer) thisItem(t itemType) item {
	i := item{t, l.start, l.input[l.start:l.pos], l.startLine, l.column(l.start)}
	l.start = l.pos
	l.startLine = l.line
	return i
}

// emit passes the trailing text as an item back to the parser.
func (l *lexer) emit(t itemType) stateFn {
	return l.emitItem(l.thisItem(t))
}

// emitItem passes the specified item to the parser.
func (l *lexer) emitItem(i item) stateFn {
	l.item = i
	return nil
}

// skip drops the pending input consumed with l.next.
func (l *lexer) skip() {
	l.start = l.pos
	l.startLine = l.line
}

// accept consumes the next rune if it's from the valid set.
func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes from the valid set.
func (l *lexer) acceptRun(valid string) bool {
	accepted := false
	for strings.ContainsRune(valid, l.next()) {
		accepted = true
	}
	l.backup()
	return accepted
}

// lexText scans the beginning of the next token.
func lexText(l *lexer) stateFn {
	l.acceptRun(" \t\r")
	l.skip()
	if l.atEOF {
		return l.emit(itemEOF)
	}
	switch r := l.peek(); {
	case r == '\n':
		// Blank lines collapse into a single newline.
		l.acceptRun(" \t\r\n")
		if l.atEOF {
			l.skip()
			return l.emit(itemEOF)
		}
		return l.emit(itemNewline)
	case r == op.DirectiveChar:
		return lexDirective
	case r == '"':
		return lexString
	case r == '-' || r == '+' || ('0' <= r && r <= '9'):
		return lexNumber
	case strings.ContainsRune(op.CommentChars, r):
		return lexComment
	case strings.ContainsRune(op.IdentChars, r):
		return lexIdentifier
	default:
		return l.errorf("unexpected character %q", r)
	}
}

// lexNumber scans a literal. Its validity is checked by the parser,
// which knows the expected operand width.
func lexNumber(l *lexer) stateFn {
	l.accept("+-")
	l.acceptRun(op.IdentChars)
	if l.peek() == op.LabelChar {
		return l.errorf("label %q must start with a letter", l.input[l.start:l.pos])
	}
	return l.emit(itemNumber)
}

func lexIdentifier(l *lexer) stateFn {
	l.acceptRun(op.IdentChars)
	// If the identifier is directly followed by a label char,
	// it is a label definition.
	if l.peek() == op.LabelChar {
		i := l.thisItem(itemLabel)
		l.next()
		l.skip()
		return l.emitItem(i)
	}
	return l.emit(itemIdentifier)
}

func lexComment(l *lexer) stateFn {
	for {
		r := l.next()
		if r == eof {
			break
		}
		if r == '\n' {
			l.backup()
			break
		}
	}
	i := l.thisItem(itemComment)
	i.val = strings.TrimSpace(i.val)
	return l.emitItem(i)
}

func lexString(l *lexer) stateFn {
	l.next()
	for {
		switch l.next() {
		case eof, '\n':
			return l.errorf("missing closing quote")
		case '"':
			return l.emit(itemRawString)
		}
	}
}

func lexDirective(l *lexer) stateFn {
	l.next()
	if !l.acceptRun(op.IdentChars) {
		return l.errorf("missing directive name")
	}
	return l.emit(itemDirective)
}

// nextItem returns the next item from the input.
func (l *lexer) nextItem() item {
	l.item = item{itemEOF, l.pos, "EOF", l.startLine, l.column(l.pos)}
	state := lexText
	for state != nil {
		state = state(l)
	}
	return l.item
}

// newLexer creates a new scanner for the input string.
func newLexer(name, input string) *lexer {
	return &lexer{
		name:      name,
		input:     input,
		line:      1,
		startLine: 1,
	}
}
