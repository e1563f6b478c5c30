package graphicsstate

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tsawler/pdfthumb/core"
)

// psOp is one element of a type 4 (PostScript calculator) program: a
// number, an operator, or a conditional with one or two sub-programs.
type psOp struct {
	num     float64
	op      string
	isNum   bool
	ifTrue  []psOp
	ifFalse []psOp
}

type calcFunction struct {
	funcBase
	prog []psOp
}

// maxCalcStack is the operand stack limit from the PostScript calculator
// definition.
const maxCalcStack = 100

var errCalcStack = errors.New("calculator stack error")

func parseCalculator(data []byte) ([]psOp, error) {
	lex := core.NewLexer(data)
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != core.TokenKeyword || string(tok.Value) != "{" {
		return nil, errors.New("calculator program must start with '{'")
	}
	return parseCalcBlock(lex, 0)
}

func parseCalcBlock(lex *core.Lexer, depth int) ([]psOp, error) {
	if depth > 32 {
		return nil, errors.New("calculator program nested too deep")
	}
	var prog []psOp
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case core.TokenEOF:
			return nil, errors.New("unterminated calculator program")
		case core.TokenInteger, core.TokenReal:
			v, err := strconv.ParseFloat(string(tok.Value), 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", tok.Value)
			}
			prog = append(prog, psOp{num: v, isNum: true})
		case core.TokenKeyword:
			switch word := string(tok.Value); word {
			case "}":
				return prog, nil
			case "{":
				block, err := parseCalcBlock(lex, depth+1)
				if err != nil {
					return nil, err
				}
				prog = append(prog, psOp{op: "{", ifTrue: block})
			case "if", "ifelse":
				n := 1
				if word == "ifelse" {
					n = 2
				}
				if len(prog) < n {
					return nil, fmt.Errorf("%s without procedure", word)
				}
				blocks := prog[len(prog)-n:]
				for _, b := range blocks {
					if b.op != "{" {
						return nil, fmt.Errorf("%s without procedure", word)
					}
				}
				prog = prog[:len(prog)-n]
				cond := psOp{op: "if", ifTrue: blocks[0].ifTrue}
				if n == 2 {
					cond.ifFalse = blocks[1].ifTrue
				}
				prog = append(prog, cond)
			default:
				prog = append(prog, psOp{op: word})
			}
		default:
			return nil, fmt.Errorf("unexpected token %q in calculator program", tok.Value)
		}
	}
}

func (f *calcFunction) Eval(in []float64) []float64 {
	stack := append(make([]float64, 0, maxCalcStack), f.clipIn(in)...)
	stack, err := runCalc(f.prog, stack)
	n := len(f.rng) / 2
	out := make([]float64, n)
	if err != nil || len(stack) < n {
		return f.clipOut(out)
	}
	copy(out, stack[len(stack)-n:])
	return f.clipOut(out)
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// runCalc executes prog. Booleans are represented as 0 and 1.
func runCalc(prog []psOp, s []float64) ([]float64, error) {
	pop := func() (float64, error) {
		if len(s) == 0 {
			return 0, errCalcStack
		}
		v := s[len(s)-1]
		s = s[:len(s)-1]
		return v, nil
	}
	for _, op := range prog {
		if op.isNum {
			if len(s) >= maxCalcStack {
				return s, errCalcStack
			}
			s = append(s, op.num)
			continue
		}
		if op.op == "if" {
			c, err := pop()
			if err != nil {
				return s, err
			}
			if c != 0 {
				if s, err = runCalc(op.ifTrue, s); err != nil {
					return s, err
				}
			} else if op.ifFalse != nil {
				if s, err = runCalc(op.ifFalse, s); err != nil {
					return s, err
				}
			}
			continue
		}

		switch op.op {
		case "true":
			s = append(s, 1)
			continue
		case "false":
			s = append(s, 0)
			continue
		case "dup":
			if len(s) == 0 {
				return s, errCalcStack
			}
			s = append(s, s[len(s)-1])
			continue
		case "pop":
			if _, err := pop(); err != nil {
				return s, err
			}
			continue
		case "exch":
			if len(s) < 2 {
				return s, errCalcStack
			}
			s[len(s)-1], s[len(s)-2] = s[len(s)-2], s[len(s)-1]
			continue
		case "copy":
			n, err := pop()
			if err != nil || int(n) > len(s) || n < 0 {
				return s, errCalcStack
			}
			s = append(s, s[len(s)-int(n):]...)
			continue
		case "index":
			n, err := pop()
			if err != nil || int(n) >= len(s) || n < 0 {
				return s, errCalcStack
			}
			s = append(s, s[len(s)-1-int(n)])
			continue
		case "roll":
			j, err1 := pop()
			n, err2 := pop()
			if err1 != nil || err2 != nil || int(n) > len(s) || n < 0 {
				return s, errCalcStack
			}
			if n > 0 {
				part := s[len(s)-int(n):]
				shift := ((int(j) % int(n)) + int(n)) % int(n)
				rolled := append(append([]float64{}, part[len(part)-shift:]...), part[:len(part)-shift]...)
				copy(part, rolled)
			}
			continue
		}

		// Unary operators.
		switch op.op {
		case "abs", "neg", "ceiling", "floor", "round", "truncate", "sqrt",
			"sin", "cos", "ln", "log", "cvi", "cvr", "not":
			a, err := pop()
			if err != nil {
				return s, err
			}
			var r float64
			switch op.op {
			case "abs":
				r = math.Abs(a)
			case "neg":
				r = -a
			case "ceiling":
				r = math.Ceil(a)
			case "floor":
				r = math.Floor(a)
			case "round":
				r = math.Floor(a + 0.5)
			case "truncate", "cvi":
				r = math.Trunc(a)
			case "sqrt":
				r = math.Sqrt(math.Max(a, 0))
			case "sin":
				r = math.Sin(a * math.Pi / 180)
			case "cos":
				r = math.Cos(a * math.Pi / 180)
			case "ln":
				r = math.Log(a)
			case "log":
				r = math.Log10(a)
			case "cvr":
				r = a
			case "not":
				r = boolf(a == 0)
			}
			s = append(s, r)
			continue
		}

		// Binary operators.
		b, err1 := pop()
		a, err2 := pop()
		if err1 != nil || err2 != nil {
			return s, errCalcStack
		}
		var r float64
		switch op.op {
		case "add":
			r = a + b
		case "sub":
			r = a - b
		case "mul":
			r = a * b
		case "div":
			if b == 0 {
				return s, errors.New("division by zero")
			}
			r = a / b
		case "idiv":
			if int(b) == 0 {
				return s, errors.New("division by zero")
			}
			r = float64(int(a) / int(b))
		case "mod":
			if int(b) == 0 {
				return s, errors.New("division by zero")
			}
			r = float64(int(a) % int(b))
		case "exp":
			r = math.Pow(a, b)
		case "atan":
			r = math.Atan2(a, b) * 180 / math.Pi
			if r < 0 {
				r += 360
			}
		case "eq":
			r = boolf(a == b)
		case "ne":
			r = boolf(a != b)
		case "gt":
			r = boolf(a > b)
		case "ge":
			r = boolf(a >= b)
		case "lt":
			r = boolf(a < b)
		case "le":
			r = boolf(a <= b)
		case "and":
			r = float64(int(a) & int(b))
		case "or":
			r = float64(int(a) | int(b))
		case "xor":
			r = float64(int(a) ^ int(b))
		case "bitshift":
			if b >= 0 {
				r = float64(int(a) << uint(b))
			} else {
				r = float64(int(a) >> uint(-b))
			}
		default:
			return s, fmt.Errorf("unknown calculator operator %q", op.op)
		}
		s = append(s, r)
	}
	return s, nil
}
