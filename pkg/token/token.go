package token

import "strconv"

type Type int

const (
	EOF Type = iota
	Ident
	IntLiteral
	FloatLiteral
	BoolLiteral
	StringLiteral
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Eq
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Not
	// I2F is never scanned; the analyzer inserts it for int->float coercions.
	I2F
)

// OperatorMap maps operator spellings to their token type
var OperatorMap = map[string]Type{
	"=":   Eq,
	"+":   Plus,
	"-":   Minus,
	"*":   Star,
	"/":   Slash,
	"==":  EqEq,
	"!=":  Neq,
	"<":   Lt,
	">":   Gt,
	">=":  Gte,
	"<=":  Lte,
	"&&":  AndAnd,
	"||":  OrOr,
	"!":   Not,
	"i2f": I2F,
}

// Reverse mapping from Type to the operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range OperatorMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
