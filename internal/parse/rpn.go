package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/core/hashmap"
)

// TokenType classifies the tokens of an infix expression.
type TokenType uint8

const (
	TokenFloat TokenType = iota
	TokenInteger
	TokenString
	TokenOperator // prefix unary: !, u-
	TokenBinaryOperator
	TokenLeftSquareBracket
	TokenRightSquareBracket
	TokenLeftParenthesis
	TokenRightParenthesis
	TokenComma
	TokenFunction
	TokenVariable
)

// Markers written to the RPN output.
const (
	FunctionOperator  = "()" // suffix of a function name: "max()"
	SubscriptOperator = "[]" // applies an index to the value before it
	UnaryMinus        = "u-"
	TokenSeparator    = " "
)

type operatorInfo struct {
	precedence int
	rightAssoc bool
}

var operators = hashmap.New[string, operatorInfo](0, nil)

func init() {
	for _, op := range []struct {
		name string
		info operatorInfo
	}{
		{"=", operatorInfo{1, true}},
		{"||", operatorInfo{2, false}},
		{"&&", operatorInfo{3, false}},
		{"==", operatorInfo{4, false}},
		{"!=", operatorInfo{4, false}},
		{"<", operatorInfo{5, false}},
		{"<=", operatorInfo{5, false}},
		{">", operatorInfo{5, false}},
		{">=", operatorInfo{5, false}},
		{"+", operatorInfo{6, false}},
		{"-", operatorInfo{6, false}},
		{"*", operatorInfo{7, false}},
		{"/", operatorInfo{7, false}},
		{"%", operatorInfo{7, false}},
		{"^", operatorInfo{10, true}},
		{"!", operatorInfo{9, true}},
		{UnaryMinus, operatorInfo{9, true}},
	} {
		operators.Insert(op.name, op.info)
	}
}

// Token patterns, tried in order at each position.
var tokenPatterns = []struct {
	typ TokenType
	re  *regexp.Regexp
}{
	{TokenFloat, regexp.MustCompile(`^(?:\d+\.\d*|\.\d+)(?:[eE][-+]?\d+)?|^\d+[eE][-+]?\d+`)},
	{TokenInteger, regexp.MustCompile(`^\d+`)},
	{TokenString, regexp.MustCompile(`^"(?:[^"\\]|\\.)*"`)},
	{TokenFunction, regexp.MustCompile(`^[A-Za-z_]\w*\s*\(`)},
	{TokenVariable, regexp.MustCompile(`^[A-Za-z_][\w.]*`)},
	{TokenBinaryOperator, regexp.MustCompile(`^(?:\|\||&&|==|!=|<=|>=|[-+*/%^<>=!])`)},
	{TokenLeftParenthesis, regexp.MustCompile(`^\(`)},
	{TokenRightParenthesis, regexp.MustCompile(`^\)`)},
	{TokenLeftSquareBracket, regexp.MustCompile(`^\[`)},
	{TokenRightSquareBracket, regexp.MustCompile(`^\]`)},
	{TokenComma, regexp.MustCompile(`^,`)},
}

type tokenHandler func(c *RPNConverter, token string) error

var tokenHandlers = hashmap.New[TokenType, tokenHandler](0, func(t TokenType) uint32 { return uint32(t) })

func init() {
	for _, h := range []struct {
		typ TokenType
		fn  tokenHandler
	}{
		{TokenFloat, handleValue},
		{TokenInteger, handleValue},
		{TokenString, handleValue},
		{TokenVariable, handleValue},
		{TokenOperator, handleOperator},
		{TokenBinaryOperator, handleOperator},
		{TokenFunction, handleFunction},
		{TokenComma, handleComma},
		{TokenLeftParenthesis, handleLeftParenthesis},
		{TokenRightParenthesis, handleRightParenthesis},
		{TokenLeftSquareBracket, handleLeftSquareBracket},
		{TokenRightSquareBracket, handleRightSquareBracket},
	} {
		tokenHandlers.Insert(h.typ, h.fn)
	}
}

type stackEntry struct {
	text string
	typ  TokenType
}

// RPNConverter turns infix expressions into reverse Polish notation with
// the shunting-yard algorithm. Operands keep their source text; operators,
// function names (suffixed with FunctionOperator) and SubscriptOperator
// follow their operands, all separated by single spaces:
//
//	a + b * 2       ->  a b 2 * +
//	max(x, -y)[i]   ->  x y u- max() i []
//
// A converter is reusable but not safe for concurrent use.
type RPNConverter struct {
	stack []stackEntry
	out   []string
	cur   TokenType
	prev  TokenType
	first bool
}

func NewRPNConverter() *RPNConverter { return &RPNConverter{} }

// ConvertToRPN converts one infix expression. Unbalanced brackets, a comma
// outside a function call, and unknown characters fail with
// ErrInvalidArgument.
func (c *RPNConverter) ConvertToRPN(infix string) (string, error) {
	c.stack = c.stack[:0]
	c.out = c.out[:0]
	c.first = true

	rest := strings.TrimSpace(infix)
	for rest != "" {
		typ, token, ok := nextToken(rest)
		if !ok {
			return "", fmt.Errorf("%w: unexpected %q in %q", errs.ErrInvalidArgument, rest[:1], infix)
		}
		rest = strings.TrimLeft(rest[len(token):], " \t\r\n")

		if typ == TokenBinaryOperator && c.expectsOperand() {
			switch token {
			case "-":
				token, typ = UnaryMinus, TokenOperator
			case "!":
				typ = TokenOperator
			default:
				return "", fmt.Errorf("%w: operator %q without a left operand in %q", errs.ErrInvalidArgument, token, infix)
			}
		} else if token == "!" {
			return "", fmt.Errorf("%w: prefix operator %q after an operand in %q", errs.ErrInvalidArgument, token, infix)
		}

		h, err := tokenHandlers.Get(typ)
		if err != nil {
			return "", err
		}
		c.cur = typ
		if err := h(c, token); err != nil {
			return "", fmt.Errorf("%w in %q", err, infix)
		}
		c.prev = typ
		c.first = false
	}

	for len(c.stack) > 0 {
		top := c.pop()
		if top.typ != TokenOperator && top.typ != TokenBinaryOperator {
			return "", fmt.Errorf("%w: unclosed %q in %q", errs.ErrInvalidArgument, top.text, infix)
		}
		c.out = append(c.out, top.text)
	}
	return strings.Join(c.out, TokenSeparator), nil
}

func nextToken(s string) (TokenType, string, bool) {
	for _, p := range tokenPatterns {
		if m := p.re.FindString(s); m != "" {
			return p.typ, m, true
		}
	}
	return 0, "", false
}

// expectsOperand reports whether the next token starts an operand, which
// makes - and ! prefix operators.
func (c *RPNConverter) expectsOperand() bool {
	if c.first {
		return true
	}
	switch c.prev {
	case TokenOperator, TokenBinaryOperator, TokenLeftParenthesis,
		TokenLeftSquareBracket, TokenComma, TokenFunction:
		return true
	}
	return false
}

func (c *RPNConverter) push(text string, typ TokenType) {
	c.stack = append(c.stack, stackEntry{text, typ})
}

func (c *RPNConverter) pop() stackEntry {
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return top
}

func (c *RPNConverter) top() (stackEntry, bool) {
	if len(c.stack) == 0 {
		return stackEntry{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// popUntil moves operators to the output until the top of the stack is open.
func (c *RPNConverter) popUntil(open TokenType) error {
	for {
		top, ok := c.top()
		if !ok {
			return fmt.Errorf("%w: unbalanced brackets", errs.ErrInvalidArgument)
		}
		if top.typ == open {
			return nil
		}
		if top.typ != TokenOperator && top.typ != TokenBinaryOperator {
			return fmt.Errorf("%w: %q closed by the wrong bracket", errs.ErrInvalidArgument, top.text)
		}
		c.out = append(c.out, c.pop().text)
	}
}

func handleValue(c *RPNConverter, token string) error {
	c.out = append(c.out, token)
	return nil
}

func handleOperator(c *RPNConverter, token string) error {
	info, err := operators.Get(token)
	if err != nil {
		return fmt.Errorf("%w: operator %q", errs.ErrInvalidArgument, token)
	}
	// A prefix operator has no left operand to finish first.
	if c.cur == TokenBinaryOperator {
		for {
			top, ok := c.top()
			if !ok || (top.typ != TokenOperator && top.typ != TokenBinaryOperator) {
				break
			}
			ti, _ := operators.Get(top.text)
			if ti.precedence < info.precedence || (ti.precedence == info.precedence && info.rightAssoc) {
				break
			}
			c.out = append(c.out, c.pop().text)
		}
	}
	c.push(token, c.cur)
	return nil
}

func handleFunction(c *RPNConverter, token string) error {
	name := strings.TrimSpace(strings.TrimSuffix(token, "("))
	c.push(name, TokenFunction)
	c.push("(", TokenLeftParenthesis)
	return nil
}

func handleComma(c *RPNConverter, _ string) error {
	if err := c.popUntil(TokenLeftParenthesis); err != nil {
		return err
	}
	if len(c.stack) < 2 || c.stack[len(c.stack)-2].typ != TokenFunction {
		return fmt.Errorf("%w: comma outside a function call", errs.ErrInvalidArgument)
	}
	return nil
}

func handleLeftParenthesis(c *RPNConverter, token string) error {
	c.push(token, TokenLeftParenthesis)
	return nil
}

func handleRightParenthesis(c *RPNConverter, _ string) error {
	if err := c.popUntil(TokenLeftParenthesis); err != nil {
		return err
	}
	c.pop()
	if top, ok := c.top(); ok && top.typ == TokenFunction {
		c.out = append(c.out, c.pop().text+FunctionOperator)
	}
	return nil
}

func handleLeftSquareBracket(c *RPNConverter, token string) error {
	if c.expectsOperand() {
		return fmt.Errorf("%w: subscript without a value", errs.ErrInvalidArgument)
	}
	c.push(token, TokenLeftSquareBracket)
	return nil
}

func handleRightSquareBracket(c *RPNConverter, _ string) error {
	if err := c.popUntil(TokenLeftSquareBracket); err != nil {
		return err
	}
	c.pop()
	c.out = append(c.out, SubscriptOperator)
	return nil
}
