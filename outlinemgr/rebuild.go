package outlinemgr

import (
	"context"

	"github.com/wkalt/outline/division"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/util/log"
)

// RebuildResult summarizes a rebuild.
type RebuildResult struct {
	Book      string        `json:"book"`
	Divisions int           `json:"divisions"`
	Changed   int           `json:"changed"`
	Promoted  []division.ID `json:"promoted,omitempty"`
}

// RebuildTree recomputes every boundary, depth and order in book from parent
// references and sibling order alone, discarding whatever boundaries are
// stored. It is the repair path for a corrupted book and a no-op on a valid
// one. Divisions whose parent chain never reaches a root are promoted to
// roots.
func (m *Manager) RebuildTree(ctx context.Context, book string) (RebuildResult, error) {
	if err := division.ValidateBook(book); err != nil {
		return RebuildResult{}, err
	}
	result := RebuildResult{Book: book}
	err := m.mutate(ctx, "rebuild", book, func(ctx context.Context, tx divisionstore.Tx) error {
		divs, err := tx.Scan(ctx, divisionstore.ByDepthOrder)
		if err != nil {
			return err
		}
		stored := make(map[division.ID]division.Division, len(divs))
		for _, d := range divs {
			stored[d.ID] = d
		}
		numbering := nestedset.Number(divs)
		result.Divisions = len(numbering.Divisions)
		result.Promoted = numbering.Promoted
		for _, d := range numbering.Divisions {
			if stored[d.ID] == d {
				continue
			}
			if err := tx.Update(ctx, d); err != nil {
				return err
			}
			result.Changed++
		}
		if len(numbering.Promoted) > 0 {
			log.Warnw(ctx, "promoted unreachable divisions to roots", "promoted", numbering.Promoted)
		}
		log.Infow(ctx, "rebuilt book", "divisions", result.Divisions, "changed", result.Changed)
		return nil
	})
	if err != nil {
		return RebuildResult{}, err
	}
	m.metrics.promotions.Add(float64(len(result.Promoted)))
	return result, nil
}
