package lexer

// TokenType classifies lexical tokens of the scripting language.
type TokenType int

const (
	// Special tokens
	EOF     TokenType = iota
	ILLEGAL           // unrecognized or malformed input; the parser recovers from it

	// Words
	IDENTIFIER  // counter, $total, :local
	KEYWORD     // and, or, then, end, from, to, ...
	COMMAND     // add, toggle, set, repeat, ...
	EVENT       // click, keydown, submit, ...
	CONTEXT_VAR // me, it, you, I

	// Literals
	NUMBER  // 42, 3.14, 200ms, 2s
	STRING  // "text", 'text', `text`
	BOOLEAN // true, false

	// Selector literals
	ID_SELECTOR        // #main
	CLASS_SELECTOR     // .active, .btn.primary
	ATTRIBUTE_SELECTOR // [@disabled], [@data-state="open"]
	QUERY_SELECTOR     // <button.primary/>
	ATTRIBUTE_REF      // @href

	// Operators and punctuation
	OPERATOR    // + - * / % =
	COMPARISON  // == === != !== < <= > >=
	PUNCTUATION // ( ) [ ] { } , . : ;
	POSSESSIVE  // 's
)

var tokenNames = [...]string{
	EOF:                "EOF",
	ILLEGAL:            "ILLEGAL",
	IDENTIFIER:         "IDENTIFIER",
	KEYWORD:            "KEYWORD",
	COMMAND:            "COMMAND",
	EVENT:              "EVENT",
	CONTEXT_VAR:        "CONTEXT_VAR",
	NUMBER:             "NUMBER",
	STRING:             "STRING",
	BOOLEAN:            "BOOLEAN",
	ID_SELECTOR:        "ID_SELECTOR",
	CLASS_SELECTOR:     "CLASS_SELECTOR",
	ATTRIBUTE_SELECTOR: "ATTRIBUTE_SELECTOR",
	QUERY_SELECTOR:     "QUERY_SELECTOR",
	ATTRIBUTE_REF:      "ATTRIBUTE_REF",
	OPERATOR:           "OPERATOR",
	COMPARISON:         "COMPARISON",
	PUNCTUATION:        "PUNCTUATION",
	POSSESSIVE:         "POSSESSIVE",
}

// String returns the token type name.
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return "UNKNOWN"
}

// Token is one lexical token. Tokens are immutable once produced.
type Token struct {
	Type   TokenType
	Value  string // decoded value: string contents without quotes, selector text, word
	Start  int    // byte offset of the first character
	End    int    // byte offset one past the last character
	Line   int    // 1-based
	Column int    // 1-based, in characters
}

// Is reports whether the token has the given type and value.
func (t Token) Is(typ TokenType, value string) bool {
	return t.Type == typ && t.Value == value
}

// IsWord reports whether the token is any word-like token with the given value.
func (t Token) IsWord(value string) bool {
	switch t.Type {
	case IDENTIFIER, KEYWORD, COMMAND, EVENT, CONTEXT_VAR:
		return t.Value == value
	}
	return false
}

// String returns the token value (for testing and debugging).
func (t Token) String() string {
	if t.Type == EOF {
		return "<EOF>"
	}
	return t.Value
}

// Keywords are reserved words the parser treats structurally.
var Keywords = map[string]bool{
	"and": true, "or": true, "not": true, "no": true, "mod": true,
	"is": true, "am": true, "match": true, "matches": true, "contains": true, "does": true,
	"in": true, "of": true, "as": true,
	"then": true, "else": true, "end": true,
	"from": true, "to": true, "into": true, "with": true, "by": true,
	"on": true, "at": true, "before": true, "after": true,
	"until": true, "while": true, "times": true, "forever": true, "each": true,
	"the": true, "my": true, "its": true, "your": true,
	"closest": true, "first": true, "last": true, "next": true, "previous": true,
	"def": true, "behavior": true, "init": true,
	"null": true, "exists": true, "empty": true,
}

// Commands are the names the parser recognizes as command starts without a
// symbol table. Registering a command at runtime does not change this set;
// unknown names fail at dispatch, not at parse.
var Commands = map[string]bool{
	"add": true, "remove": true, "toggle": true, "take": true,
	"set": true, "get": true, "put": true, "append": true, "default": true,
	"increment": true, "decrement": true,
	"show": true, "hide": true, "focus": true, "blur": true,
	"call": true, "log": true, "wait": true, "settle": true, "transition": true,
	"send": true, "trigger": true, "fetch": true, "go": true,
	"halt": true, "break": true, "continue": true, "return": true, "exit": true, "throw": true,
	"tell": true, "repeat": true, "for": true, "if": true, "unless": true,
	"make": true, "pick": true, "measure": true, "copy": true, "beep": true, "async": true,
}

// Events are well-known DOM event names. Custom event names lex as identifiers
// and are still accepted after `on`.
var Events = map[string]bool{
	"click": true, "dblclick": true, "contextmenu": true,
	"mousedown": true, "mouseup": true, "mousemove": true,
	"mouseover": true, "mouseout": true, "mouseenter": true, "mouseleave": true,
	"keydown": true, "keyup": true, "keypress": true,
	"input": true, "change": true, "submit": true, "reset": true,
	"load": true, "unload": true, "scroll": true, "resize": true,
	"touchstart": true, "touchend": true, "touchmove": true,
	"pointerdown": true, "pointerup": true, "wheel": true,
	"dragstart": true, "dragend": true, "dragover": true, "drop": true,
	"animationend": true, "transitionend": true, "intersection": true, "mutation": true,
}

// ContextVars are the implicit references of an execution context.
var ContextVars = map[string]bool{
	"me": true, "I": true, "it": true, "you": true,
}

// BlockingCommands suspend the enclosing sequence until an external
// operation settles.
var BlockingCommands = map[string]bool{
	"wait": true, "settle": true, "transition": true, "fetch": true, "async": true,
}
