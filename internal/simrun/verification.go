package simrun

import (
	"fmt"
)

// verifyPacing checks that dispensed never ran ahead of expected. Every coin is
// chosen to fit the gap it fills, so any lead means a mis-sized coin.
func verifyPacing(stats *Stats) error {
	if stats.MaxLead.IsPositive() {
		return fmt.Errorf("dispensed led expected by %s: %w", stats.MaxLead.String(), ErrOvershoot)
	}
	return nil
}
