package scheduler

import (
	"fmt"
	"testing"
	"time"

	"karaoke_party/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func makeItem(id uint, singer string, addedAt int) models.QueueItem {
	return models.QueueItem{
		Model:       gorm.Model{ID: id},
		SingerName:  singer,
		Title:       fmt.Sprintf("Песня %d", id),
		DurationSec: 200,
		AddedAt:     addedAt,
		Position:    addedAt,
		TiebreakKey: fmt.Sprintf("tb-%04d", id),
	}
}

func singers(items []models.QueueItem) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.SingerName
	}
	return names
}

func TestOrderFairnessRoundRobin(t *testing.T) {
	// Три исполнителя добавили по песне, затем первый добавил вторую
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
		makeItem(4, "Аня", 4),
	}

	ordered := Order(items, "", Policy{Fairness: true})
	assert.Equal(t, []string{"Аня", "Борис", "Вера", "Аня"}, singers(ordered))
}

func TestOrderDeterminism(t *testing.T) {
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Аня", 3),
		makeItem(4, "Вера", 4),
		makeItem(5, "Борис", 5),
	}

	first := Order(items, "Аня", Policy{Fairness: true})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Order(items, "Аня", Policy{Fairness: true}),
			"Порядок должен быть одинаков для одинакового входа")
	}
}

func TestOrderNoImmediateRepeat(t *testing.T) {
	// Если есть хотя бы два исполнителя, последний певший не открывает раунд
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
	}

	ordered := Order(items, "Аня", Policy{Fairness: true})
	assert.NotEqual(t, "Аня", ordered[0].SingerName)
	assert.Equal(t, []string{"Борис", "Вера", "Аня"}, singers(ordered))
}

func TestOrderLastSingerAloneKeepsTurn(t *testing.T) {
	// Единственный оставшийся исполнитель не сдвигается
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Аня", 2),
	}

	ordered := Order(items, "Аня", Policy{Fairness: true})
	assert.Equal(t, []string{"Аня", "Аня"}, singers(ordered))
}

func TestOrderPerSingerOrderPreserved(t *testing.T) {
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Аня", 3),
		makeItem(4, "Аня", 4),
		makeItem(5, "Борис", 5),
	}

	ordered := Order(items, "", Policy{Fairness: true})

	var anya []uint
	for _, it := range ordered {
		if it.SingerName == "Аня" {
			anya = append(anya, it.ID)
		}
	}
	assert.Equal(t, []uint{1, 3, 4}, anya, "Песни исполнителя не переставляются между собой")
}

func TestOrderPriorityPrecedence(t *testing.T) {
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
	}
	items[2].IsPriority = true

	for _, policy := range []Policy{{Fairness: true}, {}, {ManualSort: true}} {
		ordered := Order(items, "", policy)
		assert.Equal(t, uint(3), ordered[0].ID, "Приоритетная песня всегда первая (policy %+v)", policy)
	}
}

func TestOrderFIFO(t *testing.T) {
	items := []models.QueueItem{
		makeItem(3, "Вера", 3),
		makeItem(1, "Аня", 1),
		makeItem(2, "Аня", 2),
	}

	ordered := Order(items, "", Policy{})
	assert.Equal(t, []uint{1, 2, 3}, []uint{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestOrderManualSort(t *testing.T) {
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
	}
	items[0].Position = 30
	items[1].Position = 10
	items[2].Position = 20

	ordered := Order(items, "", Policy{ManualSort: true})
	assert.Equal(t, []uint{2, 3, 1}, []uint{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestOrderSkipsPlayed(t *testing.T) {
	played := time.Now()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
	}
	items[0].PlayedAt = &played

	ordered := Order(items, "", Policy{Fairness: true})
	assert.Len(t, ordered, 1)
	assert.Equal(t, uint(2), ordered[0].ID)
}

func TestOrderTiebreakKey(t *testing.T) {
	// «Одновременные» элементы упорядочиваются ключом tiebreak
	a := makeItem(1, "Аня", 7)
	b := makeItem(2, "Борис", 7)
	a.TiebreakKey = "zzz"
	b.TiebreakKey = "aaa"

	ordered := Order([]models.QueueItem{a, b}, "", Policy{})
	assert.Equal(t, uint(2), ordered[0].ID)
}

func TestLastPlayedSinger(t *testing.T) {
	early := time.Now().Add(-time.Minute)
	late := time.Now()

	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
	}
	items[0].PlayedAt = &early
	items[1].PlayedAt = &late

	assert.Equal(t, "Борис", LastPlayedSinger(items))
	assert.Equal(t, "", LastPlayedSinger([]models.QueueItem{makeItem(4, "Гоша", 4)}))
}

func TestScenarioAfterAdvance(t *testing.T) {
	// Сценарий: Вера спела, у Ани и Бориса остались песни —
	// следующая голова не Вера
	playedAt := time.Now()
	items := []models.QueueItem{
		makeItem(1, "Аня", 1),
		makeItem(2, "Борис", 2),
		makeItem(3, "Вера", 3),
	}
	items[2].PlayedAt = &playedAt

	head := Head(items, LastPlayedSinger(items), Policy{Fairness: true})
	assert.NotNil(t, head)
	assert.NotEqual(t, "Вера", head.SingerName)
	assert.Equal(t, "Аня", head.SingerName, "Голова — самая ранняя песня из оставшихся исполнителей")
}

func TestHeadEmpty(t *testing.T) {
	assert.Nil(t, Head(nil, "", Policy{Fairness: true}))

	playedAt := time.Now()
	item := makeItem(1, "Аня", 1)
	item.PlayedAt = &playedAt
	assert.Nil(t, Head([]models.QueueItem{item}, "Аня", Policy{Fairness: true}))
}
