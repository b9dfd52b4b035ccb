// Package legacy maps historical transaction status values onto the canonical
// lifecycle states. It is a read-side adapter: writers only ever persist
// canonical ledger.Status values.
package legacy

import (
	"fmt"
	"strings"

	"github.com/viant/fingov/model/ledger"
)

var aliases = map[string]ledger.Status{
	"DRAFT":              ledger.StatusImported,
	"PENDING":            ledger.StatusException,
	"APPROVED":           ledger.StatusResolved,
	"APPROVED_AUTOMATIC": ledger.StatusValidated,
	"REJECTED":           ledger.StatusRejected,
}

// Normalize returns the canonical status for a stored value, accepting both
// canonical and legacy spellings.
func Normalize(raw string) (ledger.Status, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if status := ledger.Status(value); status.Valid() {
		return status, nil
	}
	if status, ok := aliases[value]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown transaction status: %q", raw)
}

// IsLegacy reports whether raw is a legacy alias rather than a canonical state.
func IsLegacy(raw string) bool {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if ledger.Status(value).Valid() {
		return false
	}
	_, ok := aliases[value]
	return ok
}

// Aliases returns status followed by every legacy spelling that normalizes to it,
// in a stable order.
func Aliases(status ledger.Status) []string {
	ret := []string{string(status)}
	for _, name := range []string{"DRAFT", "PENDING", "APPROVED", "APPROVED_AUTOMATIC"} {
		if aliases[name] == status {
			ret = append(ret, name)
		}
	}
	return ret
}
