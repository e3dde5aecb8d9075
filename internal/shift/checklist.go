// Package shift holds the driver-side shift workflow: the pre-shift
// checklist, checklist-gated clock-in and daily log submission. Its state is
// process-local and is not restored from stored records.
package shift

import (
	"sync"
)

// ChecklistItem is one pre-shift safety check.
type ChecklistItem struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Checked     bool   `json:"checked"`
}

// DefaultItems returns the standard pre-shift checks, all unchecked.
func DefaultItems() []ChecklistItem {
	return []ChecklistItem{
		{ID: "brakes", Label: "Brakes Inspection", Description: "Check brake pads and fluid levels"},
		{ID: "tires", Label: "Tire Condition", Description: "Inspect pressure and tread depth"},
		{ID: "oil", Label: "Engine Oil Level", Description: "Verify oil level and quality"},
		{ID: "lights", Label: "Lights & Signals", Description: "Test all lights and indicators"},
		{ID: "mirrors", Label: "Mirrors & Visibility", Description: "Adjust and clean all mirrors"},
		{ID: "fuel", Label: "Fuel Level", Description: "Ensure adequate fuel for shift"},
	}
}

// Checklist tracks the pre-shift checks. It moves from incomplete to
// complete only through Confirm, and Confirm only succeeds when every item
// is checked. Once confirmed it stays complete until Reset.
type Checklist struct {
	mu        sync.Mutex
	template  []ChecklistItem
	items     []ChecklistItem
	confirmed bool
}

// NewChecklist builds a checklist from items, or from DefaultItems when none are given.
func NewChecklist(items ...ChecklistItem) *Checklist {
	if len(items) == 0 {
		items = DefaultItems()
	}
	c := &Checklist{template: append([]ChecklistItem(nil), items...)}
	c.Reset()
	return c
}

// Toggle flips the checked flag of the item with the given id.
func (c *Checklist) Toggle(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Checked = !c.items[i].Checked
			return nil
		}
	}
	return ErrUnknownItem
}

// Items returns a copy of the items.
func (c *Checklist) Items() []ChecklistItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChecklistItem(nil), c.items...)
}

// Progress returns the number of checked items and the total.
func (c *Checklist) Progress() (completed, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkedLocked(), len(c.items)
}

// AllChecked reports whether every item is checked.
func (c *Checklist) AllChecked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkedLocked() == len(c.items)
}

// Confirm completes the checklist.
func (c *Checklist) Confirm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checkedLocked() != len(c.items) {
		return ErrChecklistIncomplete
	}
	c.confirmed = true
	return nil
}

// Complete reports whether the checklist has been confirmed.
func (c *Checklist) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

// Reset unchecks every item and drops the confirmation.
func (c *Checklist) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]ChecklistItem, len(c.template))
	for i, item := range c.template {
		item.Checked = false
		c.items[i] = item
	}
	c.confirmed = false
}

func (c *Checklist) checkedLocked() int {
	n := 0
	for _, item := range c.items {
		if item.Checked {
			n++
		}
	}
	return n
}
