package outlinemgr

import (
	"context"
	"fmt"

	"github.com/spaolacci/murmur3"
	"github.com/wkalt/outline/division"
)

// FingerprintOf hashes the structural content of divs, which must be in
// pre-order. Two books with the same fingerprint have the same divisions in
// the same places with the same titles.
func FingerprintOf(divs []division.Division) string {
	h := murmur3.New64()
	for _, d := range divs {
		fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%d\x00%d\x00%s\n",
			d.ID, d.ParentID, d.Left, d.Right, d.Depth, d.Order, d.Title)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Fingerprint returns a hash of book's current outline. It changes whenever
// any division in the book is added, removed, moved or renamed.
func (m *Manager) Fingerprint(ctx context.Context, book string) (string, error) {
	divs, err := m.List(ctx, book)
	if err != nil {
		return "", err
	}
	return FingerprintOf(divs), nil
}
