package cart

import (
	"github.com/angelmondragon/storefront-sync/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
)

// MergeLine folds line into the snapshot. A line matching an existing entry
// on (ItemID, Variant) increments that entry's quantity; anything else is
// appended. Quantities below one are treated as one. The input slice is not
// mutated.
func MergeLine(items models.CartLines, line models.CartLine) models.CartLines {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	for i := range items {
		if items[i].ItemID == line.ItemID && items[i].Variant.Equal(line.Variant) {
			merged := append(models.CartLines(nil), items...)
			merged[i].Quantity += line.Quantity
			return merged
		}
	}
	return append(append(models.CartLines(nil), items...), line)
}

// MergeCarts folds every line of incoming into base, matching on
// (ItemID, Variant). Used to reconcile a locally accumulated cart with the
// remote snapshot when a session appears.
func MergeCarts(base, incoming models.CartLines) models.CartLines {
	merged := append(models.CartLines(nil), base...)
	for _, line := range incoming {
		merged = MergeLine(merged, line)
	}
	return merged
}

// RemoveLine drops the entry at index from the snapshot.
func RemoveLine(items models.CartLines, index int) (models.CartLines, error) {
	if index < 0 || index >= len(items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line index out of range")
	}
	out := append(models.CartLines(nil), items[:index]...)
	return append(out, items[index+1:]...), nil
}

// BumpQuantity applies delta to the quantity of the entry at index.
// Quantities never drop below one; removing a line is an explicit
// RemoveLine, not a zero write.
func BumpQuantity(items models.CartLines, index, delta int) (models.CartLines, error) {
	if index < 0 || index >= len(items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line index out of range")
	}
	out := append(models.CartLines(nil), items...)
	next := out[index].Quantity + delta
	if next < 1 {
		next = 1
	}
	out[index].Quantity = next
	return out, nil
}
