package scanner

import "regexp"

// scriptPatterns find script text embedded in templates. Group 1 is the
// script.
var scriptPatterns = []*regexp.Regexp{
	// Attributes.
	regexp.MustCompile(`_="([^"]*)"`),
	regexp.MustCompile(`_='([^']*)'`),
	regexp.MustCompile("_=`([^`]*)`"),
	// JSX props: template literal, then plain string.
	regexp.MustCompile("_=\\{`([^`]+)`\\}"),
	regexp.MustCompile(`_=\{['"]([^'"]+)['"]\}`),
	regexp.MustCompile(`data-hs="([^"]*)"`),
	regexp.MustCompile(`data-hs='([^']*)'`),
	// Django tags.
	regexp.MustCompile(`(?s)\{%\s*hs\s*%\}(.*?)\{%\s*endhs\s*%\}`),
	regexp.MustCompile(`\{%\s*hs_attr\s+"([^"]+)"\s*%\}`),
	regexp.MustCompile(`\{%\s*hs_attr\s+'([^']+)'\s*%\}`),
	regexp.MustCompile(`\{%\s*hs_script\s+"([^"]+)"\s*%\}`),
	regexp.MustCompile(`\{%\s*hs_script\s+'([^']+)'\s*%\}`),
	regexp.MustCompile(`(?is)<script[^>]*type=["']?text/hyperscript["']?[^>]*>(.*?)</script>`),
}

// commandPattern matches the commands a bundler can leave out when unused.
var commandPattern = regexp.MustCompile(`(?i)\b(toggle|add|remove|removeClass|show|hide|set|get|put|append|` +
	`take|increment|decrement|log|send|trigger|wait|transition|go|call|focus|blur|return)\b`)

type blockPattern struct {
	block string
	re    *regexp.Regexp
}

// blockPatterns detect block constructs. unless shares the if block.
var blockPatterns = []blockPattern{
	{"if", regexp.MustCompile(`(?i)\bif\b`)},
	{"if", regexp.MustCompile(`(?i)\bunless\b`)},
	{"repeat", regexp.MustCompile(`(?i)\brepeat\s+(\d+|:\w+|\$\w+|[\w.]+)\s+times?\b`)},
	{"for", regexp.MustCompile(`(?i)\bfor\s+(each|every)\b`)},
	{"while", regexp.MustCompile(`(?i)\bwhile\b`)},
	{"fetch", regexp.MustCompile(`(?i)\bfetch\b`)},
	{"async", regexp.MustCompile(`(?i)\basync\b`)},
}

var positionalPattern = regexp.MustCompile(`(?i)\b(first|last|next|previous|closest|parent)\b`)

// KnownCommands are the command names usage reports may contain.
var KnownCommands = []string{
	"add", "append", "blur", "call", "decrement", "focus", "get", "go", "hide", "increment", "log",
	"put", "remove", "removeclass", "return", "send", "set", "show", "take", "toggle", "transition",
	"trigger", "wait",
}

// KnownBlocks are the block names usage reports may contain.
var KnownBlocks = []string{"async", "fetch", "for", "if", "repeat", "while"}
