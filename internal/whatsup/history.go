package whatsup

import (
	"fmt"

	"whatsup-go/internal/model"
)

// GetHistory returns the most recent check cycles, ordered newest first.
func (c *Checker) GetHistory(limit int) ([]*model.CheckRun, error) {
	runs, err := c.database.ListCheckRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing check runs: %w", err)
	}
	return runs, nil
}
