// Package naming converts between the natural-language and identifier
// conventions rekord derives its schema from: singular/plural nouns,
// PascalCase class names, snake_case table names, and foreign-key columns.
package naming

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// irregulars maps singular nouns to plurals that do not follow the regular
// rules. Order matters for suffix matching: "woman" must be tested before
// "man", otherwise "woman" would pluralize as "women" via the wrong entry.
var irregulars = []struct {
	singular, plural string
}{
	{"person", "people"},
	{"child", "children"},
	{"woman", "women"},
	{"man", "men"},
}

// Pluralize returns the plural form of an English noun. Irregular nouns are
// matched exactly first, then by suffix so that compounds like "grandchild"
// and "policeman" inflect correctly. Everything else falls through to the
// regular rules.
func Pluralize(term string) string {
	for _, ir := range irregulars {
		if term == ir.singular {
			return ir.plural
		}
	}
	for _, ir := range irregulars {
		if strings.HasSuffix(term, ir.singular) {
			return term[:len(term)-len(ir.singular)] + ir.plural
		}
	}
	switch {
	case strings.HasSuffix(term, "s"), strings.HasSuffix(term, "x"):
		return term + "es"
	case strings.HasSuffix(term, "o") && !strings.HasSuffix(term, "oo"):
		return term + "es"
	case strings.HasSuffix(term, "y"):
		return term[:len(term)-1] + "ies"
	default:
		return term + "s"
	}
}

// Singularize is the inverse of Pluralize.
func Singularize(term string) string {
	for _, ir := range irregulars {
		if term == ir.plural {
			return ir.singular
		}
	}
	for _, ir := range irregulars {
		if strings.HasSuffix(term, ir.plural) {
			return term[:len(term)-len(ir.plural)] + ir.singular
		}
	}
	switch {
	case strings.HasSuffix(term, "xes"), strings.HasSuffix(term, "oes"):
		return term[:len(term)-2]
	case strings.HasSuffix(term, "ies"):
		return term[:len(term)-3] + "y"
	case strings.HasSuffix(term, "s"):
		return term[:len(term)-1]
	default:
		return term
	}
}

// ClassNameToTableName converts a PascalCase class name to its plural
// snake_case table name, e.g. "GrandChild" -> "grand_children".
func ClassNameToTableName(className string) string {
	return Pluralize(inflect.Underscore(className))
}

// TableNameToClassName converts a plural snake_case table name to its
// singular PascalCase class name, e.g. "grand_children" -> "GrandChild".
func TableNameToClassName(tableName string) string {
	return inflect.Camelize(Singularize(tableName))
}

// ClassNameToForeignKey derives the conventional foreign-key column for a
// class name, e.g. "Person" -> "person_id".
func ClassNameToForeignKey(className string) string {
	return inflect.Underscore(className) + "_id"
}

// TableNameToForeignKey derives the conventional foreign-key column for a
// table name, e.g. "people" -> "person_id".
func TableNameToForeignKey(tableName string) string {
	return Singularize(tableName) + "_id"
}
