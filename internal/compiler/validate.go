package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/simtree/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateField   = "E201" // field declared twice in one record
	ErrEmptyRecord      = "E202" // record declares no fields
	ErrUnknownTypeRef   = "E203" // type expression names an undeclared record
	ErrBadTypeExpr      = "E204" // type expression does not parse or resolve
	ErrInvalidFieldName = "E205" // empty field name or name containing '.'
	ErrDuplicateRecord  = "E206" // record name declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRecords checks record declarations.
// Returns all errors found (does not fail-fast).
func ValidateRecords(decls []RecordDecl) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		// E206: duplicate record name
		if declared[d.Name] {
			errs = append(errs, ValidationError{
				Field:   d.Name,
				Message: fmt.Sprintf("duplicate record name: %q", d.Name),
				Code:    ErrDuplicateRecord,
				Line:    d.Pos.Line(),
			})
		}
		declared[d.Name] = true
	}

	for _, d := range decls {
		errs = append(errs, validateRecord(d, declared)...)
	}
	return errs
}

func validateRecord(d RecordDecl, declared map[string]bool) []ValidationError {
	var errs []ValidationError

	// E202: at least one field
	if len(d.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   d.Name,
			Message: fmt.Sprintf("record %q declares no fields", d.Name),
			Code:    ErrEmptyRecord,
			Line:    d.Pos.Line(),
		})
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		path := d.Name + "." + f.Name
		line := f.Pos.Line()

		// E205: field names are path segments
		if f.Name == "" || strings.Contains(f.Name, ".") {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid field name %q", f.Name),
				Code:    ErrInvalidFieldName,
				Line:    line,
			})
		}

		// E201: duplicate field
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate field: %q", f.Name),
				Code:    ErrDuplicateField,
				Line:    line,
			})
		}
		seen[f.Name] = true

		errs = append(errs, validateTypeExpr(f, path, declared)...)
	}
	return errs
}

// validateTypeExpr reports E204 for syntax errors and E203 for each
// undeclared record name.
func validateTypeExpr(f FieldDecl, path string, declared map[string]bool) []ValidationError {
	expr, err := parseTypeExpr(f.Type)
	if err != nil {
		return []ValidationError{{
			Field:   path,
			Message: err.Error(),
			Code:    ErrBadTypeExpr,
			Line:    f.Pos.Line(),
		}}
	}

	var errs []ValidationError
	for _, name := range expr.refs() {
		if !declared[name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unknown type %q in %q", name, f.Type),
				Code:    ErrUnknownTypeRef,
				Line:    f.Pos.Line(),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	// Parameters, enum members and dtypes are checked by resolving against
	// placeholder records.
	placeholders := make(map[string]*ir.RecordType, len(declared))
	for name := range declared {
		placeholders[name] = &ir.RecordType{Name: name}
	}
	if _, err := expr.resolve(placeholders, path); err != nil && !isUnknownRef(err) {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: err.Error(),
			Code:    ErrBadTypeExpr,
			Line:    f.Pos.Line(),
		})
	}
	return errs
}
