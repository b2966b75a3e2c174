package rawc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"rawc/internal/diag"
	"rawc/internal/dtype"
	"rawc/internal/tir"
)

// printExpr renders e. Calls that only produce statements render as "".
func (fe *funcEmitter) printExpr(e *tir.Expr) (string, error) {
	switch e.Kind {
	case tir.ExprVar:
		return fe.localName(e.Local)
	case tir.ExprIntImm:
		return intLiteral(e.Type, e.Int)
	case tir.ExprFloatImm:
		return floatLiteral(e.Type, e.Float)
	case tir.ExprStringImm:
		return cQuote(e.Str), nil
	case tir.ExprBinary:
		return fe.printBinary(e)
	case tir.ExprNot:
		a, err := fe.value(&e.Args[0])
		if err != nil {
			return "", err
		}
		return "(!" + a + ")", nil
	case tir.ExprCast:
		ty, err := CType(e.Type)
		if err != nil {
			return "", err
		}
		a, err := fe.value(&e.Args[0])
		if err != nil {
			return "", err
		}
		return "((" + ty + ")" + a + ")", nil
	case tir.ExprSelect:
		return fe.printTernary(e.Args)
	case tir.ExprLoad:
		ref, err := fe.bufferRef(e.Local, e.Type, &e.Args[0])
		if err != nil {
			return "", err
		}
		return ref, nil
	case tir.ExprCall:
		return fe.lowerCall(e)
	default:
		return "", diag.Errorf(diag.StructuralViolation, "cannot emit expression of kind %s", e.Kind)
	}
}

// value renders e where a value is required.
func (fe *funcEmitter) value(e *tir.Expr) (string, error) {
	s, err := fe.printExpr(e)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", diag.Errorf(diag.MalformedCall, "%s used as a value but yields none", e.Op)
	}
	return s, nil
}

func (fe *funcEmitter) values(args []tir.Expr) ([]string, error) {
	out := make([]string, len(args))
	for i := range args {
		s, err := fe.value(&args[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (fe *funcEmitter) printBinary(e *tir.Expr) (string, error) {
	args, err := fe.values(e.Args)
	if err != nil {
		return "", err
	}
	a, b := args[0], args[1]
	switch e.BinOp {
	case tir.BinMin:
		return fmt.Sprintf("((%s) < (%s) ? (%s) : (%s))", a, b, a, b), nil
	case tir.BinMax:
		return fmt.Sprintf("((%s) > (%s) ? (%s) : (%s))", a, b, a, b), nil
	}
	return "(" + a + " " + e.BinOp.String() + " " + b + ")", nil
}

func (fe *funcEmitter) printTernary(args []tir.Expr) (string, error) {
	vals, err := fe.values(args)
	if err != nil {
		return "", err
	}
	return "(" + vals[0] + " ? " + vals[1] + " : " + vals[2] + ")", nil
}

// bufferRef renders buf[index] read or written as elem. Buffers declared
// with a different element type are cast first.
func (fe *funcEmitter) bufferRef(buf tir.LocalID, elem dtype.DataType, index *tir.Expr) (string, error) {
	name, err := fe.localName(buf)
	if err != nil {
		return "", err
	}
	idx, err := fe.value(index)
	if err != nil {
		return "", err
	}
	local, _ := fe.f.Local(buf)
	if local.Pointee == elem {
		return name + "[" + idx + "]", nil
	}
	ty, err := CType(elem)
	if err != nil {
		return "", err
	}
	return "((" + ty + "*)" + name + ")[" + idx + "]", nil
}

var callArity = map[tir.Op]int{
	tir.OpReinterpret: 1,
	tir.OpIfThenElse:  3,
	tir.OpRet:         1,
}

// printCall covers the calls without a dedicated lowering.
func (fe *funcEmitter) printCall(call *tir.Expr) (string, error) {
	if want, ok := callArity[call.Op]; ok && len(call.Args) != want {
		return "", diag.Errorf(diag.MalformedCall, "%s expects %d arguments, got %d", call.Op, want, len(call.Args))
	}
	switch call.Op {
	case tir.OpExtern:
		args, err := fe.values(call.Args)
		if err != nil {
			return "", err
		}
		return call.Str + "(" + strings.Join(args, ", ") + ")", nil
	case tir.OpReinterpret:
		if call.Type.IsHandle() && call.Args[0].IsZero() {
			return "NULL", nil
		}
		ty, err := CType(call.Type)
		if err != nil {
			return "", err
		}
		a, err := fe.value(&call.Args[0])
		if err != nil {
			return "", err
		}
		return "(*(" + ty + " *)(&(" + a + ")))", nil
	case tir.OpIfThenElse:
		return fe.printTernary(call.Args)
	case tir.OpRet:
		a, err := fe.value(&call.Args[0])
		if err != nil {
			return "", err
		}
		fe.line("return " + a + ";")
		return "", nil
	default:
		return "", diag.Errorf(diag.MalformedCall, "unknown builtin %s", call.Op)
	}
}

func intLiteral(t dtype.DataType, v int64) (string, error) {
	text := strconv.FormatInt(v, 10)
	switch {
	case t.IsBool():
		if v != 0 {
			return "true", nil
		}
		return "false", nil
	case t == dtype.Int32():
		return text, nil
	}
	ty, err := CType(t)
	if err != nil {
		return "", err
	}
	return "((" + ty + ")" + text + ")", nil
}

func floatLiteral(t dtype.DataType, v float64) (string, error) {
	ty, err := CType(t)
	if err != nil {
		return "", err
	}
	text := floatText(v)
	switch {
	case t == dtype.Float32() && !math.IsInf(v, 0) && !math.IsNaN(v):
		return text + "f", nil
	case t == dtype.Float(64, 1):
		return text, nil
	}
	return "((" + ty + ")" + text + ")", nil
}

// floatText spells v as a C floating literal.
func floatText(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NAN"
	case math.IsInf(v, 1):
		return "INFINITY"
	case math.IsInf(v, -1):
		return "-INFINITY"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// cQuote renders s as a C string literal. Bytes outside printable ASCII are
// written as octal escapes.
func cQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, "\\%03o", c)
				continue
			}
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
