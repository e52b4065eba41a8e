package recovery

import (
	"regexp"
	"strings"

	"github.com/aide-agent/aide/internal/executor"
)

// RemedyClass is the kind of fix the engine will attempt for a diagnosis.
type RemedyClass string

const (
	RemedyAddDependency RemedyClass = "add_dependency"
	RemedyAddImport     RemedyClass = "add_import"
	RemedyFixType       RemedyClass = "fix_type"
	RemedyFixSyntax     RemedyClass = "fix_syntax"
	RemedyGeneric       RemedyClass = "generic"
)

// remedyOrder is the rotation the engine follows when a class is rejected.
var remedyOrder = []RemedyClass{
	RemedyAddDependency,
	RemedyAddImport,
	RemedyFixType,
	RemedyFixSyntax,
	RemedyGeneric,
}

// Diagnosis is the structured reading of a categorized failure.
type Diagnosis struct {
	Class   RemedyClass
	Symbol  string
	File    string
	Message string
}

// Signature is the identity of a diagnosis for loop detection. Two
// diagnoses with byte-identical signatures describe the same failure.
func (d Diagnosis) Signature() string {
	return string(d.Class) + "|" + d.Symbol + "|" + d.File
}

var (
	// e.g. `main.go:5:2: undefined: uuid.New`
	fileLineRe = regexp.MustCompile(`([\w./-]+\.go):\d+`)
	// e.g. `undefined: uuid.New` or `undeclared name: Builder`
	symbolRe = regexp.MustCompile(`(?:undefined|undeclared name):\s*([\w.]+)`)
	// e.g. `no required module provides package github.com/google/uuid`
	packageRe = regexp.MustCompile(`(?:package|module|crate)\s+['"` + "`" + `]?([\w./@-]+)`)
)

// Diagnose parses a categorized failure into a Diagnosis. Only Code and
// Resource categories are diagnosable; everything else maps to the
// generic remedy.
func Diagnose(cerr *executor.CategorizedError) Diagnosis {
	d := Diagnosis{Class: RemedyGeneric, Message: cerr.Message}

	if m := fileLineRe.FindStringSubmatch(cerr.Message); m != nil {
		d.File = m[1]
	}

	switch cerr.Subtype {
	case "missing_dependency":
		d.Class = RemedyAddDependency
		if m := packageRe.FindStringSubmatch(cerr.Message); m != nil {
			d.Symbol = m[1]
		}
	case "missing_import":
		d.Class = RemedyAddImport
		if m := symbolRe.FindStringSubmatch(cerr.Message); m != nil {
			d.Symbol = m[1]
		}
	case "type_error":
		d.Class = RemedyFixType
	case "syntax_error":
		d.Class = RemedyFixSyntax
	case "not_found":
		d.Class = RemedyGeneric
		d.Symbol = cerr.Resource
	}

	return d
}

// nextClass returns the first remedy class after the tried set, following
// the rotation, or false when all classes are exhausted.
func nextClass(tried map[RemedyClass]bool) (RemedyClass, bool) {
	for _, class := range remedyOrder {
		if !tried[class] {
			return class, true
		}
	}
	return "", false
}

// describeSymbol keeps summaries readable when no symbol was extracted.
func describeSymbol(d Diagnosis) string {
	if d.Symbol != "" {
		return d.Symbol
	}
	if d.File != "" {
		return d.File
	}
	if len(d.Message) > 60 {
		return strings.TrimSpace(d.Message[:60]) + "..."
	}
	return d.Message
}
