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

func (fe *funcEmitter) emitStmt(s *tir.Stmt) error {
	switch s.Kind {
	case tir.StmtSeq:
		for i := range s.Seq {
			if err := fe.emitStmt(&s.Seq[i]); err != nil {
				return err
			}
		}
		return nil
	case tir.StmtEvaluate:
		if s.Value.Kind == tir.ExprIntImm {
			return nil
		}
		v, err := fe.printExpr(&s.Value)
		if err != nil {
			return err
		}
		if v != "" {
			fe.line(v + ";")
		}
		return nil
	case tir.StmtLet:
		return fe.emitLet(s)
	case tir.StmtStore:
		ref, err := fe.bufferRef(s.Local, s.Value.Type, &s.Index)
		if err != nil {
			return err
		}
		v, err := fe.value(&s.Value)
		if err != nil {
			return err
		}
		fe.line(ref + " = " + v + ";")
		return nil
	case tir.StmtFor:
		return fe.emitFor(s)
	case tir.StmtIfThenElse:
		return fe.emitIf(s)
	case tir.StmtAssert:
		return fe.emitAssert(s)
	case tir.StmtAllocate:
		return fe.emitAllocate(s)
	case tir.StmtAllocateConst:
		return fe.emitAllocateConst(s)
	default:
		return diag.Errorf(diag.StructuralViolation, "cannot emit statement of kind %s", s.Kind)
	}
}

func (fe *funcEmitter) emitLet(s *tir.Stmt) error {
	v, err := fe.value(&s.Value)
	if err != nil {
		return err
	}
	decl, err := fe.declare(s.Local)
	if err != nil {
		return err
	}
	fe.line(decl + " = " + v + ";")
	return fe.emitStmt(s.Body)
}

func (fe *funcEmitter) emitFor(s *tir.Stmt) error {
	lo, err := fe.value(&s.Min)
	if err != nil {
		return err
	}
	extent, err := fe.value(&s.Extent)
	if err != nil {
		return err
	}
	decl, err := fe.declare(s.Local)
	if err != nil {
		return err
	}
	name := fe.names[s.Local]
	end := extent
	if !s.Min.IsZero() {
		end = "(" + lo + " + " + extent + ")"
	}
	fe.line(fmt.Sprintf("for (%s = %s; %s < %s; ++%s) {", decl, lo, name, end, name))
	if err := fe.block(s.Body); err != nil {
		return err
	}
	fe.line("}")
	return nil
}

func (fe *funcEmitter) emitIf(s *tir.Stmt) error {
	cond, err := fe.value(&s.Value)
	if err != nil {
		return err
	}
	fe.line("if (" + cond + ") {")
	if err := fe.block(s.Body); err != nil {
		return err
	}
	if s.Else != nil {
		fe.line("} else {")
		if err := fe.block(s.Else); err != nil {
			return err
		}
	}
	fe.line("}")
	return nil
}

// emitAssert records the message with the runtime and fails the call when
// the condition does not hold.
func (fe *funcEmitter) emitAssert(s *tir.Stmt) error {
	cond, err := fe.value(&s.Value)
	if err != nil {
		return err
	}
	fe.line("if (!(" + cond + ")) {")
	fe.indent++
	fe.line("TVMAPISetLastError(" + cQuote(s.Message) + ");")
	fe.line("return -1;")
	fe.indent--
	fe.line("}")
	return fe.emitStmt(s.Body)
}

func (fe *funcEmitter) emitAllocate(s *tir.Stmt) error {
	local, _ := fe.f.Local(s.Local)
	ty, err := CType(local.Pointee)
	if err != nil {
		return err
	}
	name, err := fe.bind(s.Local)
	if err != nil {
		return err
	}
	fe.line(fmt.Sprintf("%s %s[%d];", ty, name, s.Size))
	return fe.emitStmt(s.Body)
}

// emitAllocateConst places constant data in the declaration section, aligned
// to the target's constants byte alignment.
func (fe *funcEmitter) emitAllocateConst(s *tir.Stmt) error {
	local, _ := fe.f.Local(s.Local)
	ty, err := CType(local.Pointee)
	if err != nil {
		return err
	}
	name, err := fe.bind(s.Local)
	if err != nil {
		return err
	}
	elems, err := constElems(local.Pointee, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(&fe.g.decl, "static const %s %s[%d] __attribute__((aligned(%d))) = {%s};\n",
		ty, name, s.Size, fe.g.target.Alignment(), strings.Join(elems, ", "))
	return fe.emitStmt(s.Body)
}

func constElems(elem dtype.DataType, s *tir.Stmt) ([]string, error) {
	out := make([]string, 0, s.Size)
	switch {
	case len(s.Floats) > 0:
		if !elem.IsFloat() {
			return nil, diag.Errorf(diag.UnsupportedType, "floating point constants for a %s buffer", elem)
		}
		for _, v := range s.Floats {
			text := floatText(v)
			if elem.Bits == 32 && !math.IsInf(v, 0) && !math.IsNaN(v) {
				text += "f"
			}
			out = append(out, text)
		}
	default:
		if elem.IsFloat() {
			for _, v := range s.Ints {
				out = append(out, floatText(float64(v)))
			}
			break
		}
		for _, v := range s.Ints {
			out = append(out, strconv.FormatInt(v, 10))
		}
	}
	return out, nil
}

// block emits body one level deeper.
func (fe *funcEmitter) block(body *tir.Stmt) error {
	fe.indent++
	defer func() { fe.indent-- }()
	return fe.emitStmt(body)
}
