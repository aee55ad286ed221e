package ws

import (
	"testing"
	"time"

	"karaoke_party/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestBuildPlaylistSnapshot(t *testing.T) {
	playedAt := time.Now().Add(-time.Minute)
	currentID := uint(2)
	remaining := 150

	party := &models.Party{
		Model:               gorm.Model{ID: 1},
		Code:                "party-1",
		Status:              models.PartyStatusStarted,
		FairnessEnabled:     true,
		CurrentItemID:       &currentID,
		CurrentRemainingSec: &remaining,
	}

	items := []models.QueueItem{
		{Model: gorm.Model{ID: 1}, PartyID: 1, SingerName: "Аня", Title: "Спетая", DurationSec: 180, AddedAt: 1, TiebreakKey: "a", PlayedAt: &playedAt},
		{Model: gorm.Model{ID: 2}, PartyID: 1, SingerName: "Борис", Title: "Текущая", DurationSec: 200, AddedAt: 2, TiebreakKey: "b"},
		{Model: gorm.Model{ID: 3}, PartyID: 1, SingerName: "Вера", Title: "Следующая", DurationSec: 210, AddedAt: 3, TiebreakKey: "c"},
	}

	snapshot := BuildPlaylistSnapshot(party, items)

	assert.Equal(t, models.PartyStatusStarted, snapshot.Status)
	assert.True(t, snapshot.Settings.FairnessEnabled)

	assert.Len(t, snapshot.Played, 1)
	assert.Equal(t, uint(1), snapshot.Played[0].ID)

	assert.Len(t, snapshot.Unplayed, 2)
	assert.Equal(t, uint(2), snapshot.Unplayed[0].ID, "Голова очереди первая")

	assert.NotNil(t, snapshot.CurrentItem)
	assert.Equal(t, "Текущая", snapshot.CurrentItem.Title)

	assert.Equal(t, &remaining, snapshot.Clock.RemainingSec)
	assert.Nil(t, snapshot.Clock.StartedAt)
}

func TestBuildPlaylistSnapshotEmptyQueue(t *testing.T) {
	party := &models.Party{
		Model:  gorm.Model{ID: 1},
		Code:   "party-2",
		Status: models.PartyStatusOpen,
	}

	snapshot := BuildPlaylistSnapshot(party, nil)
	assert.Nil(t, snapshot.CurrentItem)
	assert.Empty(t, snapshot.Unplayed)
	assert.Empty(t, snapshot.Played)
}
