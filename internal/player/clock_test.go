package player

import (
	"fmt"
	"testing"
	"time"

	"karaoke_party/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func startedParty() *models.Party {
	return &models.Party{
		Model:           gorm.Model{ID: 1},
		Code:            "party-1",
		Status:          models.PartyStatusStarted,
		FairnessEnabled: true,
	}
}

func makeItem(id uint, singer string, addedAt, durationSec int) models.QueueItem {
	return models.QueueItem{
		Model:       gorm.Model{ID: id},
		PartyID:     1,
		SingerName:  singer,
		DurationSec: durationSec,
		AddedAt:     addedAt,
		TiebreakKey: fmt.Sprintf("tb-%04d", id),
	}
}

func intPtr(v int) *int { return &v }

func TestPlayWithSeek(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	now := time.Now()

	head, ok := Play(party, items, intPtr(45), now)
	assert.True(t, ok)
	assert.Equal(t, uint(1), head.ID)
	assert.Equal(t, 155, *party.CurrentRemainingSec)
	assert.Equal(t, now, *party.CurrentStartedAt)
}

func TestPlaySeekBeyondDuration(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 100)}

	_, ok := Play(party, items, intPtr(500), time.Now())
	assert.True(t, ok)
	assert.Equal(t, 0, *party.CurrentRemainingSec, "Остаток не бывает отрицательным")
}

func TestPauseSubtractsElapsed(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	start := time.Now()

	_, ok := Play(party, items, nil, start)
	assert.True(t, ok)

	assert.True(t, Pause(party, start.Add(10*time.Second)))
	assert.Equal(t, 190, *party.CurrentRemainingSec)
	assert.Nil(t, party.CurrentStartedAt)
}

func TestPauseThenPlayConservesRemaining(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	start := time.Now()

	_, _ = Play(party, items, nil, start)
	Pause(party, start.Add(30*time.Second))
	remaining := *party.CurrentRemainingSec

	// Возобновление без перемотки продолжает с места паузы
	_, ok := Play(party, items, nil, start.Add(40*time.Second))
	assert.True(t, ok)
	assert.Equal(t, remaining, *party.CurrentRemainingSec)
}

func TestPauseClampsAtZero(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 5)}
	start := time.Now()

	_, _ = Play(party, items, nil, start)
	assert.True(t, Pause(party, start.Add(time.Hour)))
	assert.Equal(t, 0, *party.CurrentRemainingSec)
}

func TestPlayInvalidTransitions(t *testing.T) {
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}

	open := startedParty()
	open.Status = models.PartyStatusOpen
	_, ok := Play(open, items, nil, time.Now())
	assert.False(t, ok, "play в антракте игнорируется")

	disabled := startedParty()
	disabled.PlaybackDisabled = true
	_, ok = Play(disabled, items, nil, time.Now())
	assert.False(t, ok, "play при отключённом плеере игнорируется")

	empty := startedParty()
	_, ok = Play(empty, nil, nil, time.Now())
	assert.False(t, ok, "play без очереди игнорируется")
}

func TestPauseWithoutPlaying(t *testing.T) {
	party := startedParty()
	assert.False(t, Pause(party, time.Now()))
}

func TestAdvanceMarksLoadedHead(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1, 200),
		makeItem(2, "Борис", 2, 200),
	}
	ResetForNewHead(party, items)
	now := time.Now()

	head, ok := Advance(party, items, nil, now)
	assert.True(t, ok)
	assert.Equal(t, uint(1), head.ID)
	assert.NotNil(t, head.PlayedAt)
	assert.Nil(t, party.CurrentItemID)
	assert.Nil(t, party.CurrentStartedAt)
	assert.Nil(t, party.CurrentRemainingSec)

	// Плеер пуст, ожидания нет — повторный advance не трогает следующую
	items[0].PlayedAt = head.PlayedAt
	_, ok = Advance(party, items, nil, now.Add(time.Second))
	assert.False(t, ok)
	assert.Nil(t, items[1].PlayedAt)
}

func TestAdvanceDuplicateSkipAdvancesOneItem(t *testing.T) {
	// Два одновременных skip называют одну и ту же песню: переключается
	// ровно одна, второй запрос — no-op
	party := startedParty()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1, 200),
		makeItem(2, "Борис", 2, 200),
	}
	ResetForNewHead(party, items)
	expected := uint(1)
	now := time.Now()

	first, ok := Advance(party, items, &expected, now)
	assert.True(t, ok)
	assert.Equal(t, uint(1), first.ID)

	items[0].PlayedAt = first.PlayedAt
	second, ok := Advance(party, items, &expected, now.Add(time.Second))
	assert.False(t, ok)
	assert.Nil(t, second)
	assert.Nil(t, items[1].PlayedAt, "Вторая песня не должна пострадать")
}

func TestAdvanceSequentialSkipsByItemID(t *testing.T) {
	// Намеренные последовательные пропуски называют каждый свою песню
	party := startedParty()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1, 200),
		makeItem(2, "Борис", 2, 200),
	}
	ResetForNewHead(party, items)
	now := time.Now()

	firstID := uint(1)
	first, ok := Advance(party, items, &firstID, now)
	assert.True(t, ok)
	items[0].PlayedAt = first.PlayedAt

	secondID := uint(2)
	second, ok := Advance(party, items, &secondID, now.Add(time.Second))
	assert.True(t, ok)
	assert.Equal(t, uint(2), second.ID)
}

func TestAdvanceExpectationMismatchIsNoop(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1, 200),
		makeItem(2, "Борис", 2, 200),
	}
	ResetForNewHead(party, items)

	stale := uint(2)
	_, ok := Advance(party, items, &stale, time.Now())
	assert.False(t, ok, "Ожидание, разошедшееся с головой, игнорируется")
	assert.Nil(t, items[0].PlayedAt)
	assert.Nil(t, items[1].PlayedAt)
}

func TestAdvanceForbiddenWhenOpen(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	ResetForNewHead(party, items)
	party.Status = models.PartyStatusOpen

	_, ok := Advance(party, items, nil, time.Now())
	assert.False(t, ok)
}

func TestAdvanceEmptyQueueIsNoop(t *testing.T) {
	// Голову уже забрал параллельный skip — штатная ситуация
	party := startedParty()
	playedAt := time.Now()
	item := makeItem(1, "Аня", 1, 200)
	item.PlayedAt = &playedAt

	head, ok := Advance(party, []models.QueueItem{item}, nil, time.Now())
	assert.Nil(t, head)
	assert.False(t, ok)
}

func TestResetForNewHeadLoadsPaused(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}

	assert.True(t, ResetForNewHead(party, items))
	assert.Equal(t, uint(1), *party.CurrentItemID)
	assert.Equal(t, 200, *party.CurrentRemainingSec)
	assert.Nil(t, party.CurrentStartedAt)

	// Голова не изменилась — повторный вызов ничего не делает
	assert.False(t, ResetForNewHead(party, items))
}

func TestResetForNewHeadSwitchesHead(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(2, "Борис", 2, 180)}
	assert.True(t, ResetForNewHead(party, items))

	// Приоритетная песня перехватывает голову, остаток перезагружается
	priority := makeItem(3, "Вера", 3, 240)
	priority.IsPriority = true
	items = append(items, priority)

	assert.True(t, ResetForNewHead(party, items))
	assert.Equal(t, uint(3), *party.CurrentItemID)
	assert.Equal(t, 240, *party.CurrentRemainingSec)
}

func TestResetForNewHeadKeepsPlaying(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	_, _ = Play(party, items, nil, time.Now())

	items = append(items, makeItem(2, "Борис", 2, 100))
	assert.False(t, ResetForNewHead(party, items), "Во время воспроизведения плеер не трогаем")
	assert.Equal(t, uint(1), *party.CurrentItemID)
}

func TestResetForNewHeadClearsOnEmpty(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	assert.True(t, ResetForNewHead(party, items))

	assert.True(t, ResetForNewHead(party, nil))
	assert.Nil(t, party.CurrentItemID)
}

func TestUnload(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	_, _ = Play(party, items, nil, time.Now())

	assert.False(t, Unload(party, 99))
	assert.True(t, Unload(party, 1))
	assert.Nil(t, party.CurrentItemID)
	assert.Nil(t, party.CurrentStartedAt)
}

func TestIntermission(t *testing.T) {
	party := startedParty()
	items := []models.QueueItem{makeItem(1, "Аня", 1, 200)}
	_, _ = Play(party, items, nil, time.Now())

	assert.True(t, Intermission(party))
	assert.Equal(t, models.PartyStatusOpen, party.Status)
	assert.Nil(t, party.CurrentItemID)

	assert.False(t, Intermission(party), "Повторный антракт игнорируется")
}
