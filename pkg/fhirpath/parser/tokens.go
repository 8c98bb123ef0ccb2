package parser

import "fmt"

// Kind classifies a lexical token.
type Kind int

const (
	Ident     Kind = iota // identifier or keyword
	Delimited             // `backtick delimited identifier`
	Special               // $this, $index, $total
	Number                // integer or decimal
	String                // 'single-quoted'
	Date                  // @2024-01-01
	DateTime              // @2024-01-01T10:00:00Z
	Time                  // @T10:00:00
	Dot                   // .
	LParen                // (
	RParen                // )
	LBrack                // [
	RBrack                // ]
	LBrace                // {
	RBrace                // }
	Comma                 // ,
	Eq                    // =
	Ne                    // !=
	Equiv                 // ~
	NotEquiv              // !~
	Lt                    // <
	Gt                    // >
	Le                    // <=
	Ge                    // >=
	Pipe                  // |
	Plus                  // +
	Minus                 // -
	Star                  // *
	Slash                 // /
	Amp                   // &
	Percent               // %
	EOF                   // end-of-input
)

var kindNames = map[Kind]string{
	Ident: "identifier", Delimited: "delimited identifier", Special: "special invocation",
	Number: "number", String: "string", Date: "date", DateTime: "dateTime", Time: "time",
	Dot: "'.'", LParen: "'('", RParen: "')'", LBrack: "'['", RBrack: "']'", LBrace: "'{'",
	RBrace: "'}'", Comma: "','", Eq: "'='", Ne: "'!='", Equiv: "'~'", NotEquiv: "'!~'",
	Lt: "'<'", Gt: "'>'", Le: "'<='", Ge: "'>='", Pipe: "'|'", Plus: "'+'", Minus: "'-'",
	Star: "'*'", Slash: "'/'", Amp: "'&'", Percent: "'%'", EOF: "end of expression",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a lexical token. Text is the raw source text, quotes and
// leading '@' included.
type Token struct {
	Kind Kind
	Text string
	Pos  int
	End  int
}

// calendarUnits are the keywords accepted as the unit of a quantity literal.
var calendarUnits = map[string]bool{
	"year": true, "month": true, "week": true, "day": true,
	"hour": true, "minute": true, "second": true, "millisecond": true,
	"years": true, "months": true, "weeks": true, "days": true,
	"hours": true, "minutes": true, "seconds": true, "milliseconds": true,
}

// reserved words can never be used as plain identifiers.
var reserved = map[string]bool{
	"and": true, "or": true, "xor": true, "implies": true,
	"div": true, "mod": true, "true": true, "false": true,
}
