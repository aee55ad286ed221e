package tasks

import (
	"log"
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/rooms"
	"karaoke_party/internal/storage"
	"karaoke_party/internal/ws"

	"github.com/robfig/cron/v3"
)

// CloseExpiredParties закрывает вечеринки, у которых наступило время закрытия.
func CloseExpiredParties() {
	now := time.Now()

	var parties []models.Party
	if err := storage.DB.
		Where("status <> ? AND closes_at IS NOT NULL AND closes_at < ?", models.PartyStatusClosed, now).
		Find(&parties).Error; err != nil {
		log.Println("Ошибка при поиске истёкших вечеринок:", err)
		return
	}

	for _, party := range parties {
		rooms.Lock(party.Code)

		// Перечитываем строку под блокировкой: список собран снаружи,
		// и вечеринку могли уже закрыть
		var fresh models.Party
		if err := storage.DB.First(&fresh, party.ID).Error; err != nil {
			rooms.Unlock(party.Code)
			continue
		}
		if fresh.Status == models.PartyStatusClosed {
			rooms.Unlock(party.Code)
			continue
		}

		fresh.Status = models.PartyStatusClosed
		fresh.CurrentItemID = nil
		fresh.CurrentStartedAt = nil
		fresh.CurrentRemainingSec = nil
		err := storage.DB.Save(&fresh).Error
		rooms.Unlock(party.Code)
		if err != nil {
			log.Println("Ошибка закрытия вечеринки", party.Code, ":", err)
			continue
		}
		ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
			EventType: ws.EventPartyClosed,
			Party:     fresh.Code,
		})
		log.Printf("Вечеринка '%s' закрыта по расписанию.\n", fresh.Name)
	}
}

// CleanOldParties удаляет закрытые вечеринки старше недели вместе с очередью
// и записями присутствия.
func CleanOldParties() {
	threshold := time.Now().Add(-7 * 24 * time.Hour)

	var parties []models.Party
	if err := storage.DB.
		Where("status = ? AND updated_at < ?", models.PartyStatusClosed, threshold).
		Find(&parties).Error; err != nil {
		log.Println("Ошибка при поиске устаревших вечеринок:", err)
		return
	}

	for _, party := range parties {
		storage.DB.Where("party_id = ?", party.ID).Delete(&models.QueueItem{})
		storage.DB.Where("party_id = ?", party.ID).Delete(&models.Participant{})
		if err := storage.DB.Delete(&party).Error; err != nil {
			log.Println("Ошибка удаления вечеринки", party.Code, ":", err)
		} else {
			log.Printf("Устаревшая вечеринка '%s' удалена.\n", party.Name)
		}
	}
}

// PruneStaleParticipants удаляет записи присутствия, молчащие больше суток.
// Из «активных» списков участники выпадают гораздо раньше (окно давности),
// здесь только чистка истории.
func PruneStaleParticipants() {
	threshold := time.Now().Add(-24 * time.Hour)
	if err := storage.DB.
		Where("last_seen_at < ?", threshold).
		Delete(&models.Participant{}).Error; err != nil {
		log.Println("Ошибка при очистке записей присутствия:", err)
	} else {
		log.Println("Неактивные записи присутствия удалены.")
	}
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler() *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Закрытие истёкших вечеринок каждую минуту.
	_, err := c.AddFunc("0 * * * * *", CloseExpiredParties)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи CloseExpiredParties:", err)
	}

	// Ежедневная чистка в 03:00.
	_, err = c.AddFunc("0 0 3 * * *", CleanOldParties)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи CleanOldParties:", err)
	}

	_, err = c.AddFunc("0 30 3 * * *", PruneStaleParticipants)
	if err != nil {
		log.Println("Ошибка запуска cron-задачи PruneStaleParticipants:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}
