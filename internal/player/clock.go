// Пакет player — машина состояний плеера вечеринки. Функции меняют только
// три поля плеера на Party и PlayedAt у головного элемента; запись в базу и
// рассылка событий остаются на вызывающем, который обязан держать блокировку
// комнаты (см. internal/rooms).
package player

import (
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/scheduler"
)

// Play запускает отсчёт для головного элемента очереди. seekSec задаёт
// перемотку от начала песни. Возвращает головной элемент и признак того,
// что состояние изменилось; false — переход недопустим и игнорируется.
func Play(party *models.Party, items []models.QueueItem, seekSec *int, now time.Time) (*models.QueueItem, bool) {
	if party.Status != models.PartyStatusStarted || party.PlaybackDisabled {
		return nil, false
	}

	head := scheduler.Head(items, scheduler.LastPlayedSinger(items), scheduler.PolicyOf(party))
	if head == nil {
		return nil, false
	}

	var remaining int
	switch {
	case seekSec != nil:
		remaining = head.DurationSec - *seekSec
		if remaining < 0 {
			remaining = 0
		}
	case party.CurrentItemID != nil && *party.CurrentItemID == head.ID && party.CurrentRemainingSec != nil:
		// Продолжаем уже загруженную песню с места паузы
		remaining = *party.CurrentRemainingSec
	default:
		remaining = head.DurationSec
	}

	itemID := head.ID
	startedAt := now
	party.CurrentItemID = &itemID
	party.CurrentRemainingSec = &remaining
	party.CurrentStartedAt = &startedAt
	return head, true
}

// Pause останавливает отсчёт и фиксирует остаток в целых секундах
func Pause(party *models.Party, now time.Time) bool {
	if party.CurrentStartedAt == nil {
		return false
	}

	elapsed := int(now.Sub(*party.CurrentStartedAt) / time.Second)
	remaining := 0
	if party.CurrentRemainingSec != nil {
		remaining = *party.CurrentRemainingSec - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}
	party.CurrentRemainingSec = &remaining
	party.CurrentStartedAt = nil
	return true
}

// Advance помечает текущий элемент сыгранным и сбрасывает плеер.
// Переключение адресное: expectedID — элемент, который вызывающий считает
// текущим; без него ожиданием служит загруженный в плеер элемент. Если
// ожидание пусто или разошлось с головой очереди, элемент уже переключили
// наперегонки — это штатный no-op, следующая песня не страдает.
// Это единственное место, где выставляется PlayedAt.
func Advance(party *models.Party, items []models.QueueItem, expectedID *uint, now time.Time) (*models.QueueItem, bool) {
	if party.Status != models.PartyStatusStarted {
		return nil, false
	}

	head := scheduler.Head(items, scheduler.LastPlayedSinger(items), scheduler.PolicyOf(party))
	if head == nil {
		return nil, false
	}

	expected := expectedID
	if expected == nil {
		expected = party.CurrentItemID
	}
	if expected == nil || *expected != head.ID {
		return nil, false
	}

	playedAt := now
	head.PlayedAt = &playedAt
	clearClock(party)
	return head, true
}

// ResetForNewHead перезагружает плеер, когда после изменения очереди голова
// сменилась. Во время воспроизведения ничего не трогает.
func ResetForNewHead(party *models.Party, items []models.QueueItem) bool {
	if party.CurrentStartedAt != nil {
		return false
	}

	head := scheduler.Head(items, scheduler.LastPlayedSinger(items), scheduler.PolicyOf(party))
	if head == nil {
		if party.CurrentItemID == nil {
			return false
		}
		clearClock(party)
		return true
	}
	if party.CurrentItemID != nil && *party.CurrentItemID == head.ID {
		return false
	}

	itemID := head.ID
	remaining := head.DurationSec
	party.CurrentItemID = &itemID
	party.CurrentRemainingSec = &remaining
	party.CurrentStartedAt = nil
	return true
}

// Unload сбрасывает плеер, если загружен именно этот элемент. Нужен при
// удалении текущей песни: ResetForNewHead не вмешивается во время
// воспроизведения, а указатель на удалённую строку оставлять нельзя.
func Unload(party *models.Party, itemID uint) bool {
	if party.CurrentItemID == nil || *party.CurrentItemID != itemID {
		return false
	}
	clearClock(party)
	return true
}

// Intermission переводит вечеринку в антракт и сбрасывает плеер
func Intermission(party *models.Party) bool {
	if party.Status != models.PartyStatusStarted {
		return false
	}
	party.Status = models.PartyStatusOpen
	clearClock(party)
	return true
}

func clearClock(party *models.Party) {
	party.CurrentItemID = nil
	party.CurrentStartedAt = nil
	party.CurrentRemainingSec = nil
}
