package outlinemgr

import (
	"context"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/util/log"
)

// Delete removes id and its whole subtree, closes the gap it leaves and
// compacts the orders of its later siblings. It returns the number of
// divisions removed.
func (m *Manager) Delete(ctx context.Context, id division.ID) (int, error) {
	d, err := m.lookup(ctx, id)
	if err != nil {
		return 0, err
	}
	var removed int
	err = m.mutate(ctx, "delete", d.Book, func(ctx context.Context, tx divisionstore.Tx) error {
		current, err := node(ctx, tx, id)
		if err != nil {
			return err
		}
		plan := nestedset.Remove(current)
		removed, err = tx.DeleteSpan(ctx, plan.Span)
		if err != nil {
			return err
		}
		if err := tx.Displace(ctx, plan.Close); err != nil {
			return err
		}
		if err := tx.ShiftOrder(ctx, plan.Compact); err != nil {
			return err
		}
		log.Debugw(ctx, "deleted subtree", "id", id, "removed", removed)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
