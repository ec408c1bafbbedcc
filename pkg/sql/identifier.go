// Package sql provides SQL safety utilities: identifier validation,
// quoting and injection screening. Every identifier interpolated into
// statement text anywhere in the engine must pass through this package;
// values never do - they travel as bound parameters.
package sql

import (
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/rowgate-io/rowgate/pkg/apperrors"
)

// MaxIdentifierLength is the longest accepted schema/table/column name.
// PostgreSQL truncates at 63 bytes but other catalogs go higher; 128 is a
// safe upper bound for anything we would meet in the wild.
const MaxIdentifierLength = 128

// IdentifierKind names what an identifier refers to, for error messages.
type IdentifierKind string

const (
	KindSchema IdentifierKind = "schema"
	KindTable  IdentifierKind = "table"
	KindColumn IdentifierKind = "column"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier performs the pure syntactic check: letters, digits and
// underscores, starting with a letter or underscore, at most
// MaxIdentifierLength characters. This is checked before any catalog I/O
// and rejects virtually every injection attempt outright.
//
// Catalog existence is a separate concern (see pkg/catalog) so that callers
// can distinguish a malformed name from a well-formed one that simply does
// not exist.
func ValidateIdentifier(name string, kind IdentifierKind) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s name", apperrors.ErrInvalidIdentifier, kind)
	}
	if len(name) > MaxIdentifierLength {
		return fmt.Errorf("%w: %s name exceeds %d characters", apperrors.ErrInvalidIdentifier, kind, MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		// Echo at most a short prefix; the rejected string is attacker-controlled.
		display := name
		if len(display) > 32 {
			display = display[:32] + "..."
		}
		return fmt.Errorf("%w: %s name %q contains disallowed characters", apperrors.ErrInvalidIdentifier, kind, display)
	}
	return nil
}

// QuoteIdentifier double-quotes an already-validated identifier for
// interpolation into PostgreSQL statement text.
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// QualifiedTable returns a properly quoted table reference. If schema is
// empty, returns just the quoted table name, otherwise "schema"."table".
func QualifiedTable(schema, table string) string {
	quotedTable := QuoteIdentifier(table)
	if schema == "" {
		return quotedTable
	}
	return QuoteIdentifier(schema) + "." + quotedTable
}
