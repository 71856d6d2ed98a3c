package lexer

import (
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace [128]bool
	isLetter     [128]bool
	isDigit      [128]bool
	isIdentPart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentPart[i] = isLetter[i] || isDigit[i]
	}
}

// LexerOpt represents a lexer configuration option
type LexerOpt func(*LexerConfig)

// TelemetryMode controls telemetry collection (production-safe)
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Token counts only
	TelemetryTiming                      // Token counts + total lexing time
)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	telemetry TelemetryMode
	debug     bool
	logger    *slog.Logger
}

// WithTelemetryBasic enables per-type token counts.
func WithTelemetryBasic() LexerOpt {
	return func(c *LexerConfig) { c.telemetry = TelemetryBasic }
}

// WithTelemetryTiming enables token counts and timing.
func WithTelemetryTiming() LexerOpt {
	return func(c *LexerConfig) { c.telemetry = TelemetryTiming }
}

// WithDebug records a debug event for every emitted token (development only).
func WithDebug() LexerOpt {
	return func(c *LexerConfig) { c.debug = true }
}

// WithLogger routes illegal-character diagnostics to logger at debug level.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) { c.logger = logger }
}

// Telemetry holds lexer metrics (nil when disabled).
type Telemetry struct {
	Counts   map[TokenType]int
	Duration time.Duration
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Event string // "emit", "illegal"
	Token Token
}

// Lexer turns source text into tokens in a single forward pass.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int

	// prev is the last emitted token; selector and possessive recognition depend on it.
	prev    Token
	hasPrev bool

	config      LexerConfig
	telemetry   *Telemetry
	debugEvents []DebugEvent
}

// NewLexer creates a lexer over input.
func NewLexer(input string, opts ...LexerOpt) *Lexer {
	l := &Lexer{}
	for _, opt := range opts {
		opt(&l.config)
	}
	if l.config.logger == nil {
		l.config.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.config.telemetry > TelemetryOff {
		l.telemetry = &Telemetry{Counts: make(map[TokenType]int)}
	}
	l.Init(input)
	return l
}

// Init resets the lexer with new input (following Go scanner pattern)
func (l *Lexer) Init(input string) {
	l.input = input
	l.pos = 0
	l.line = 1
	l.column = 1
	l.hasPrev = false
	l.prev = Token{}
	if l.telemetry != nil {
		l.telemetry = &Telemetry{Counts: make(map[TokenType]int)}
	}
	l.debugEvents = l.debugEvents[:0]
}

// Tokenize lexes source and returns all tokens, ending with exactly one EOF.
func Tokenize(source string, opts ...LexerOpt) []Token {
	return NewLexer(source, opts...).GetTokens()
}

// GetTokens lexes the remaining input. The EOF token is appended once.
func (l *Lexer) GetTokens() []Token {
	var start time.Time
	if l.config.telemetry >= TelemetryTiming {
		start = time.Now()
	}

	tokens := make([]Token, 0, len(l.input)/3+1)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}

	if l.config.telemetry >= TelemetryTiming {
		l.telemetry.Duration = time.Since(start)
	}
	return tokens
}

// Telemetry returns collected metrics, or nil when disabled.
func (l *Lexer) Telemetry() *Telemetry {
	return l.telemetry
}

// DebugEvents returns recorded debug events, or nil when disabled.
func (l *Lexer) DebugEvents() []DebugEvent {
	if !l.config.debug {
		return nil
	}
	out := make([]DebugEvent, len(l.debugEvents))
	copy(out, l.debugEvents)
	return out
}

// NextToken returns the next token. After the input is exhausted it keeps
// returning EOF.
func (l *Lexer) NextToken() Token {
	tok := l.lexToken()

	if l.telemetry != nil {
		l.telemetry.Counts[tok.Type]++
	}
	if l.config.debug {
		event := "emit"
		if tok.Type == ILLEGAL {
			event = "illegal"
		}
		l.debugEvents = append(l.debugEvents, DebugEvent{Event: event, Token: tok})
	}
	if tok.Type == ILLEGAL {
		l.config.logger.Debug("illegal token", "value", tok.Value, "line", tok.Line, "column", tok.Column)
	}

	l.prev = tok
	l.hasPrev = true
	return tok
}

// lexToken performs the actual tokenization work
func (l *Lexer) lexToken() Token {
	hadSpace := l.skipWhitespaceAndComments()

	if l.pos >= len(l.input) {
		return Token{Type: EOF, Start: l.pos, End: l.pos, Line: l.line, Column: l.column}
	}

	start, line, col := l.pos, l.line, l.column
	ch := l.input[l.pos]

	switch {
	case ch == '"' || ch == '\'' && !l.atPossessive() || ch == '`':
		return l.lexString(ch)
	case ch == '\'':
		l.advance()
		l.advance()
		return l.token(POSSESSIVE, "'s", start, line, col)
	case ch < 128 && isDigit[ch]:
		return l.lexNumber()
	case ch == '.' && l.peekIsDigit(1) && l.valueStart(hadSpace):
		return l.lexNumber()
	case ch == '#' && l.peekIsIdentStart(1):
		return l.lexSelector(ID_SELECTOR)
	case ch == '.' && l.peekIsSelectorStart(1) && l.valueStart(hadSpace):
		return l.lexSelector(CLASS_SELECTOR)
	case ch == '[' && l.peek(1) == '@' && l.valueStart(hadSpace):
		return l.lexAttributeSelector()
	case ch == '@' && l.peekIsIdentStart(1):
		l.advance()
		word := l.readIdent()
		return l.token(ATTRIBUTE_REF, word, start, line, col)
	case ch == '<' && l.atQuerySelector():
		return l.lexQuerySelector()
	case (ch == '$' || ch == ':') && l.peekIsIdentStart(1) && (ch == '$' || l.valueStart(hadSpace)):
		l.advance()
		word := string(ch) + l.readIdent()
		return l.token(IDENTIFIER, word, start, line, col)
	case ch >= utf8.RuneSelf || isLetter[ch]:
		return l.lexWord()
	}

	return l.lexPunctuation()
}

// skipWhitespaceAndComments skips blanks, `--` and `//` line comments.
// Returns true if anything was skipped.
func (l *Lexer) skipWhitespaceAndComments() bool {
	begin := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < 128 && isWhitespace[ch] {
			l.advance()
			continue
		}
		if (ch == '-' && l.peek(1) == '-') || (ch == '/' && l.peek(1) == '/') {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
	return l.pos > begin
}

// valueStart reports whether a '.' or '[' at the current position begins a
// value (selector literal) rather than continuing a member access.
func (l *Lexer) valueStart(hadSpace bool) bool {
	if !l.hasPrev || hadSpace {
		return true
	}
	switch l.prev.Type {
	case IDENTIFIER, CONTEXT_VAR, NUMBER, STRING, BOOLEAN, ID_SELECTOR, CLASS_SELECTOR,
		ATTRIBUTE_SELECTOR, QUERY_SELECTOR, ATTRIBUTE_REF, EVENT:
		return false
	case PUNCTUATION:
		return l.prev.Value != ")" && l.prev.Value != "]"
	}
	return true
}

// atPossessive reports whether the apostrophe at pos starts a possessive 's.
func (l *Lexer) atPossessive() bool {
	if !l.hasPrev || l.prev.End != l.pos {
		return false
	}
	switch l.prev.Type {
	case IDENTIFIER, CONTEXT_VAR, STRING, ID_SELECTOR, CLASS_SELECTOR, QUERY_SELECTOR, ATTRIBUTE_REF, EVENT, COMMAND, KEYWORD:
	case PUNCTUATION:
		if l.prev.Value != ")" && l.prev.Value != "]" {
			return false
		}
	default:
		return false
	}
	if l.peek(1) != 's' {
		return false
	}
	next := l.peek(2)
	return next == 0 || next >= utf8.RuneSelf || !isIdentPart[next]
}

// atQuerySelector reports whether '<' starts a <selector/> literal on this line.
func (l *Lexer) atQuerySelector() bool {
	next := l.peek(1)
	if !(next < 128 && isLetter[next]) && next != '.' && next != '#' && next != '[' && next != '*' && next != ':' {
		return false
	}
	for i := l.pos + 1; i < len(l.input); i++ {
		switch l.input[i] {
		case '\n', '<':
			return false
		case '>':
			return l.input[i-1] == '/'
		}
	}
	return false
}

func (l *Lexer) lexString(quote byte) Token {
	start, line, col := l.pos, l.line, l.column
	l.advance() // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.advance()
			return l.token(STRING, sb.String(), start, line, col)
		}
		if ch == '\n' && quote != '`' {
			break
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			switch esc := l.input[l.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
			l.advance()
			continue
		}
		sb.WriteByte(ch)
		l.advance()
	}

	// Unterminated string literal
	return l.token(ILLEGAL, l.input[start:l.pos], start, line, col)
}

// lexNumber reads integers, decimals, exponents and an optional ms/s unit.
func (l *Lexer) lexNumber() Token {
	start, line, col := l.pos, l.line, l.column

	l.readDigits()
	if l.current() == '.' && l.peekIsDigit(1) {
		l.advance()
		l.readDigits()
	}
	if c := l.current(); (c == 'e' || c == 'E') && (l.peekIsDigit(1) || ((l.peek(1) == '-' || l.peek(1) == '+') && l.peekIsDigit(2))) {
		l.advance()
		if c := l.current(); c == '-' || c == '+' {
			l.advance()
		}
		l.readDigits()
	}

	// Time units: 200ms, 2s
	if l.current() == 'm' && l.peek(1) == 's' && !l.peekIsIdentPart(2) {
		l.advance()
		l.advance()
	} else if l.current() == 's' && !l.peekIsIdentPart(1) {
		l.advance()
	}

	return l.token(NUMBER, l.input[start:l.pos], start, line, col)
}

// lexSelector reads #id or .class (compound .a.b) selectors.
func (l *Lexer) lexSelector(typ TokenType) Token {
	start, line, col := l.pos, l.line, l.column
	l.advance() // # or .
	l.readSelectorName()
	for typ == CLASS_SELECTOR && l.current() == '.' && l.peekIsSelectorStart(1) {
		l.advance()
		l.readSelectorName()
	}
	return l.token(typ, l.input[start:l.pos], start, line, col)
}

// lexAttributeSelector reads [@name], [@name=value]. The value drops the '@'.
func (l *Lexer) lexAttributeSelector() Token {
	start, line, col := l.pos, l.line, l.column
	for l.pos < len(l.input) && l.input[l.pos] != ']' && l.input[l.pos] != '\n' {
		l.advance()
	}
	if l.current() != ']' {
		return l.token(ILLEGAL, l.input[start:l.pos], start, line, col)
	}
	l.advance()
	raw := l.input[start:l.pos]
	return l.token(ATTRIBUTE_SELECTOR, "["+raw[2:], start, line, col)
}

// lexQuerySelector reads <selector/>. Value is the trimmed inner selector.
func (l *Lexer) lexQuerySelector() Token {
	start, line, col := l.pos, l.line, l.column
	l.advance() // <
	inner := l.pos
	for !(l.current() == '/' && l.peek(1) == '>') {
		l.advance()
	}
	value := strings.TrimSpace(l.input[inner:l.pos])
	l.advance()
	l.advance()
	return l.token(QUERY_SELECTOR, value, start, line, col)
}

// lexWord reads an identifier and classifies it.
func (l *Lexer) lexWord() Token {
	start, line, col := l.pos, l.line, l.column
	ch := l.input[l.pos]
	if ch >= utf8.RuneSelf {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		for i := 0; i < size; i++ {
			l.advance()
		}
		return l.token(ILLEGAL, string(r), start, line, col)
	}

	word := l.readIdent()
	return l.token(classifyWord(word), word, start, line, col)
}

func classifyWord(word string) TokenType {
	switch {
	case word == "true" || word == "false":
		return BOOLEAN
	case ContextVars[word]:
		return CONTEXT_VAR
	case Keywords[word]:
		return KEYWORD
	case Commands[word]:
		return COMMAND
	case Events[word]:
		return EVENT
	}
	return IDENTIFIER
}

func (l *Lexer) lexPunctuation() Token {
	start, line, col := l.pos, l.line, l.column
	ch := l.input[l.pos]

	switch ch {
	case '=', '!':
		l.advance()
		if l.current() == '=' {
			l.advance()
			if l.current() == '=' {
				l.advance()
			}
			return l.token(COMPARISON, l.input[start:l.pos], start, line, col)
		}
		if ch == '=' {
			return l.token(OPERATOR, "=", start, line, col)
		}
		return l.token(ILLEGAL, "!", start, line, col)
	case '<', '>':
		l.advance()
		if l.current() == '=' {
			l.advance()
		}
		return l.token(COMPARISON, l.input[start:l.pos], start, line, col)
	case '+', '-', '*', '/', '%':
		l.advance()
		return l.token(OPERATOR, string(ch), start, line, col)
	case '(', ')', '[', ']', '{', '}', ',', '.', ':', ';':
		l.advance()
		return l.token(PUNCTUATION, string(ch), start, line, col)
	}

	// Unrecognized character - advance and mark as illegal
	l.advance()
	return l.token(ILLEGAL, string(ch), start, line, col)
}

func (l *Lexer) token(typ TokenType, value string, start, line, col int) Token {
	return Token{Type: typ, Value: value, Start: start, End: l.pos, Line: line, Column: col}
}

// readIdent reads letters, digits, '_' and inner hyphens followed by a letter.
func (l *Lexer) readIdent() string {
	begin := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < 128 && isIdentPart[ch] {
			l.advance()
			continue
		}
		if ch == '-' && l.pos > begin && l.peekIsIdentStart(1) {
			l.advance()
			continue
		}
		break
	}
	return l.input[begin:l.pos]
}

// readSelectorName reads a CSS name: letters, digits, '_' and '-'.
func (l *Lexer) readSelectorName() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < 128 && (isIdentPart[ch] || ch == '-') {
			l.advance()
			continue
		}
		break
	}
}

func (l *Lexer) readDigits() {
	for l.peekIsDigit(0) {
		l.advance()
	}
}

func (l *Lexer) current() byte {
	return l.peek(0)
}

func (l *Lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) peekIsDigit(offset int) bool {
	ch := l.peek(offset)
	return ch < 128 && isDigit[ch]
}

func (l *Lexer) peekIsIdentStart(offset int) bool {
	ch := l.peek(offset)
	return ch < 128 && isLetter[ch]
}

func (l *Lexer) peekIsIdentPart(offset int) bool {
	ch := l.peek(offset)
	return ch < 128 && isIdentPart[ch]
}

func (l *Lexer) peekIsSelectorStart(offset int) bool {
	ch := l.peek(offset)
	return ch < 128 && (isLetter[ch] || ch == '-')
}

// advance moves one byte forward, tracking line and column. Multi-byte runes
// advance the column once, on their leading byte.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	ch := l.input[l.pos]
	l.pos++
	switch {
	case ch == '\n':
		l.line++
		l.column = 1
	case ch < utf8.RuneSelf || utf8.RuneStart(ch):
		l.column++
	}
}
