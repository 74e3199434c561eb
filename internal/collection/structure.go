package collection

import (
	"fmt"
	"strings"

	"github.com/conneroisu/vlist/internal/types"
)

// analyzeStructure infers field length bounds from a batch of real
// items. It runs exactly once per collection lifetime, on the first
// non-empty load; the inferred structure is immutable afterward and
// deliberately does not adapt to schema drift or optional fields that
// only appear in later batches.
func analyzeStructure(items []types.Item) types.Structure {
	structure := make(types.Structure)

	for _, item := range items {
		for field, value := range item {
			length := len(fmt.Sprintf("%v", value))

			fr, seen := structure[field]
			if !seen {
				structure[field] = types.FieldRange{MinLength: length, MaxLength: length}

				continue
			}

			if length < fr.MinLength {
				fr.MinLength = length
			}
			if length > fr.MaxLength {
				fr.MaxLength = length
			}
			structure[field] = fr
		}
	}

	return structure
}

// buildPlaceholder shapes a masked stand-in item from the inferred
// structure. Each field is a run of the mask character midway between
// the observed length bounds, so placeholders occupy roughly the same
// space as real records. The id field is left empty rather than
// masked.
func buildPlaceholder(structure types.Structure, mask string) types.Item {
	item := make(types.Item, len(structure))

	for field, fr := range structure {
		if field == "id" {
			item[field] = ""

			continue
		}

		length := (fr.MinLength + fr.MaxLength + 1) / 2
		if length < 1 {
			length = 1
		}
		item[field] = strings.Repeat(mask, length)
	}

	return item
}
