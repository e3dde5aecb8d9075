package shift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklist_Defaults(t *testing.T) {
	c := NewChecklist()
	done, total := c.Progress()
	assert.Equal(t, 0, done)
	assert.Equal(t, 6, total)
	assert.False(t, c.AllChecked())
	assert.False(t, c.Complete())
}

func TestChecklist_ConfirmRequiresEveryItem(t *testing.T) {
	c := NewChecklist()
	items := c.Items()
	for _, item := range items[:len(items)-1] {
		require.NoError(t, c.Toggle(item.ID))
	}

	assert.Equal(t, ErrChecklistIncomplete, c.Confirm())
	assert.False(t, c.Complete())

	require.NoError(t, c.Toggle(items[len(items)-1].ID))
	assert.True(t, c.AllChecked())
	require.NoError(t, c.Confirm())
	assert.True(t, c.Complete())
}

func TestChecklist_ToggleFlips(t *testing.T) {
	c := NewChecklist(ChecklistItem{ID: "brakes"}, ChecklistItem{ID: "tires"})
	require.NoError(t, c.Toggle("brakes"))
	require.NoError(t, c.Toggle("brakes"))
	done, _ := c.Progress()
	assert.Equal(t, 0, done)

	assert.Equal(t, ErrUnknownItem, c.Toggle("horn"))
}

func TestChecklist_ItemsIsACopy(t *testing.T) {
	c := NewChecklist()
	items := c.Items()
	items[0].Checked = true
	done, _ := c.Progress()
	assert.Equal(t, 0, done)
}

func TestChecklist_Reset(t *testing.T) {
	c := NewChecklist(ChecklistItem{ID: "brakes", Checked: true})
	done, _ := c.Progress()
	assert.Equal(t, 0, done, "template items start unchecked")

	require.NoError(t, c.Toggle("brakes"))
	require.NoError(t, c.Confirm())
	c.Reset()
	assert.False(t, c.Complete())
	assert.False(t, c.AllChecked())
}
