package tir

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// DumpModule writes a human-readable listing of m. Functions are sorted by
// name so the output is stable.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	funcs := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			funcs = append(funcs, f)
		}
	}
	slices.SortStableFunc(funcs, func(a, b *Func) int {
		return strings.Compare(a.Name, b.Name)
	})

	p := &printer{w: w}
	if m.Name != "" {
		p.printf("module %s\n", m.Name)
	}
	p.printf("funcs=%d\n", len(funcs))
	for _, f := range funcs {
		p.fn(f)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	f   *Func
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) fn(f *Func) {
	p.f = f
	params := make([]string, 0, len(f.Params))
	for _, id := range f.Params {
		params = append(params, p.localRef(id)+": "+p.localType(id))
	}
	attrs := ""
	if f.Attrs.Entry {
		attrs = " [entry]"
	}
	p.printf("\n%s fn %s(%s) -> %s%s", f.Kind, f.Name, strings.Join(params, ", "), f.Result, attrs)
	if f.Body == nil {
		p.printf(";\n")
		return
	}
	p.printf(":\n  locals:\n")
	for i, l := range f.Locals {
		name := l.Name
		if name == "" {
			name = "_"
		}
		p.printf("    L%d: %s name=%s\n", i, p.localType(LocalID(i)), name)
	}
	p.printf("  body:\n")
	p.stmt(f.Body, 2)
}

func (p *printer) localRef(id LocalID) string {
	if l, ok := p.f.Local(id); ok && l.Name != "" {
		return fmt.Sprintf("%s.L%d", l.Name, id)
	}
	return fmt.Sprintf("L%d", id)
}

func (p *printer) localType(id LocalID) string {
	l, ok := p.f.Local(id)
	if !ok {
		return "?"
	}
	if l.Type.IsHandle() && !l.Pointee.IsZero() {
		return "*" + l.Pointee.String()
	}
	return l.Type.String()
}

func (p *printer) stmt(s *Stmt, depth int) {
	ind := strings.Repeat("  ", depth)
	switch s.Kind {
	case StmtSeq:
		for i := range s.Seq {
			p.stmt(&s.Seq[i], depth)
		}
		return
	case StmtEvaluate:
		p.printf("%s%s\n", ind, p.expr(&s.Value))
		return
	case StmtLet:
		p.printf("%slet %s = %s\n", ind, p.localRef(s.Local), p.expr(&s.Value))
	case StmtStore:
		p.printf("%s%s[%s] = %s\n", ind, p.localRef(s.Local), p.expr(&s.Index), p.expr(&s.Value))
		return
	case StmtFor:
		p.printf("%sfor %s in %s..+%s:\n", ind, p.localRef(s.Local), p.expr(&s.Min), p.expr(&s.Extent))
		depth++
	case StmtIfThenElse:
		p.printf("%sif %s:\n", ind, p.expr(&s.Value))
		if s.Body != nil {
			p.stmt(s.Body, depth+1)
		}
		if s.Else != nil {
			p.printf("%selse:\n", ind)
			p.stmt(s.Else, depth+1)
		}
		return
	case StmtAssert:
		p.printf("%sassert %s, %s\n", ind, p.expr(&s.Value), strconv.Quote(s.Message))
	case StmtAllocate:
		p.printf("%sallocate %s[%d]\n", ind, p.localRef(s.Local), s.Size)
	case StmtAllocateConst:
		p.printf("%sallocate_const %s[%d]\n", ind, p.localRef(s.Local), s.Size)
	default:
		p.printf("%s<invalid stmt %d>\n", ind, s.Kind)
		return
	}
	if s.Body != nil {
		p.stmt(s.Body, depth)
	}
}

func (p *printer) expr(e *Expr) string {
	switch e.Kind {
	case ExprVar:
		return p.localRef(e.Local)
	case ExprIntImm:
		if e.Type.IsInt() && e.Type.Bits == 32 {
			return strconv.FormatInt(e.Int, 10)
		}
		return fmt.Sprintf("%d:%s", e.Int, e.Type)
	case ExprFloatImm:
		return fmt.Sprintf("%s:%s", strconv.FormatFloat(e.Float, 'g', -1, 64), e.Type)
	case ExprStringImm:
		return strconv.Quote(e.Str)
	case ExprBinary:
		if len(e.Args) != 2 {
			break
		}
		if e.BinOp == BinMin || e.BinOp == BinMax {
			return fmt.Sprintf("%s(%s, %s)", e.BinOp, p.expr(&e.Args[0]), p.expr(&e.Args[1]))
		}
		return fmt.Sprintf("(%s %s %s)", p.expr(&e.Args[0]), e.BinOp, p.expr(&e.Args[1]))
	case ExprNot:
		if len(e.Args) == 1 {
			return "!" + p.expr(&e.Args[0])
		}
	case ExprCast:
		if len(e.Args) == 1 {
			return fmt.Sprintf("%s(%s)", e.Type, p.expr(&e.Args[0]))
		}
	case ExprSelect:
		if len(e.Args) == 3 {
			return fmt.Sprintf("select(%s, %s, %s)", p.expr(&e.Args[0]), p.expr(&e.Args[1]), p.expr(&e.Args[2]))
		}
	case ExprLoad:
		if len(e.Args) == 1 {
			return fmt.Sprintf("%s[%s]", p.localRef(e.Local), p.expr(&e.Args[0]))
		}
	case ExprCall:
		args := make([]string, 0, len(e.Args))
		for i := range e.Args {
			args = append(args, p.expr(&e.Args[i]))
		}
		name := "@" + e.Op.String()
		if e.Op == OpExtern {
			name = "@" + e.Str
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	}
	return fmt.Sprintf("<invalid %s>", e.Kind)
}
