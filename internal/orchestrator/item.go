package orchestrator

import (
	"fmt"
	"sync"

	"go-photo-culler/pkg/models"
)

// Item tracks one file through a batch run. State transitions are
// one-directional and enforced; a terminal item never changes again.
type Item struct {
	Index int
	File  models.BatchFile

	mu    sync.Mutex
	state models.ItemState
}

func newItem(index int, file models.BatchFile) *Item {
	return &Item{Index: index, File: file, state: models.ItemPending}
}

// State returns the current state.
func (it *Item) State() models.ItemState {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// Begin moves the item from pending to processing.
func (it *Item) Begin() error {
	return it.transition(models.ItemPending, models.ItemProcessing)
}

// Complete moves the item from processing to completed.
func (it *Item) Complete() error {
	return it.transition(models.ItemProcessing, models.ItemCompleted)
}

// Fail moves the item from processing to error.
func (it *Item) Fail() error {
	return it.transition(models.ItemProcessing, models.ItemError)
}

func (it *Item) transition(from, to models.ItemState) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state.Terminal() {
		return fmt.Errorf("%s already finished as %s", it.File.Name, it.state)
	}
	if it.state != from {
		return fmt.Errorf("cannot move %s from %s to %s", it.File.Name, it.state, to)
	}
	it.state = to
	return nil
}
