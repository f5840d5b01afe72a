package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/simtree/internal/ir"
)

// RecordDecl is a record declaration before type resolution.
type RecordDecl struct {
	Name   string
	Fields []FieldDecl
	Pos    token.Pos
}

// FieldDecl is one declared field with its unparsed type expression.
type FieldDecl struct {
	Name string
	Type string
	Pos  token.Pos
}

// CompileRecords compiles the record declarations under the top-level
// "record" struct of v into record types, in declaration order.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`record: Geom: { size: "array", friction: "float" }`)
//	types, err := CompileRecords(v)
func CompileRecords(v cue.Value) ([]*ir.RecordType, error) {
	decls, err := DecodeRecords(v)
	if err != nil {
		return nil, err
	}
	if errs := ValidateRecords(decls); len(errs) > 0 {
		return nil, errs[0]
	}
	return BuildRecords(decls)
}

// DecodeRecords reads record declarations from CUE without interpreting the
// type expressions.
func DecodeRecords(v cue.Value) ([]RecordDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	recVal := v.LookupPath(cue.ParsePath("record"))
	if !recVal.Exists() {
		return nil, &CompileError{
			Field:   "record",
			Message: "no record declarations",
			Pos:     v.Pos(),
		}
	}

	iter, err := recVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []RecordDecl
	for iter.Next() {
		decl := RecordDecl{Name: iter.Label(), Pos: iter.Value().Pos()}

		fieldIter, err := iter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for fieldIter.Next() {
			fv := fieldIter.Value()
			expr, err := fv.String()
			if err != nil {
				return nil, &CompileError{
					Field:   decl.Name + "." + fieldIter.Label(),
					Message: "field type must be a string type expression",
					Pos:     fv.Pos(),
				}
			}
			decl.Fields = append(decl.Fields, FieldDecl{
				Name: fieldIter.Label(),
				Type: expr,
				Pos:  fv.Pos(),
			})
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// BuildRecords resolves validated declarations into record types. Record
// names may be referenced before they are declared.
func BuildRecords(decls []RecordDecl) ([]*ir.RecordType, error) {
	byName := make(map[string]*ir.RecordType, len(decls))
	out := make([]*ir.RecordType, len(decls))
	for i, d := range decls {
		out[i] = &ir.RecordType{Name: d.Name}
		byName[d.Name] = out[i]
	}

	for i, d := range decls {
		for _, f := range d.Fields {
			expr, err := parseTypeExpr(f.Type)
			if err != nil {
				return nil, &CompileError{Field: d.Name + "." + f.Name, Message: err.Error(), Pos: f.Pos}
			}
			t, err := expr.resolve(byName, d.Name+"."+f.Name)
			if err != nil {
				return nil, &CompileError{Field: d.Name + "." + f.Name, Message: err.Error(), Pos: f.Pos}
			}
			out[i].Fields = append(out[i].Fields, ir.Field{Name: f.Name, Type: t})
		}
	}

	for _, rt := range out {
		if err := rt.Validate(); err != nil {
			return nil, fmt.Errorf("compile records: %w", err)
		}
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// isUnknownRef reports whether err came from an unresolved record name.
func isUnknownRef(err error) bool {
	var u *unknownRefError
	return errors.As(err, &u)
}
