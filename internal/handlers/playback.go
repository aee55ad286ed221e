package handlers

import (
	"net/http"
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/player"
	"karaoke_party/internal/response"
	"karaoke_party/internal/rooms"
	"karaoke_party/internal/storage"
	"karaoke_party/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PlayRequest struct {
	SeekSec *int `json:"seek_sec"` // Перемотка от начала песни, опционально
}

// PlayHandler запускает или возобновляет воспроизведение
// @Summary		Запуск воспроизведения
// @Description	Запускает отсчёт для головной песни очереди. seek_sec перематывает от начала. Недопустимый переход — тихий no-op без рассылки.
// @Tags			playback
// @Accept			json
// @Produce		json
// @Param			code	path		string		true	"Код вечеринки"
// @Param			body	body		PlayRequest	false	"Параметры воспроизведения"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Результат"
// @Router			/api/parties/{code}/play [post]
func PlayHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	var req PlayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Ошибка валидации данных",
				Details: err.Error(),
			})
			return
		}
	}

	items, err := loadItems(party.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
		})
		return
	}

	head, changed := player.Play(party, items, req.SeekSec, time.Now())
	if !changed {
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Воспроизведение не запущено"})
		return
	}

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения состояния плеера",
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventPlaybackStarted,
		Party:     party.Code,
		Data: gin.H{
			"item_id":       head.ID,
			"started_at":    party.CurrentStartedAt,
			"remaining_sec": party.CurrentRemainingSec,
		},
	})
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Воспроизведение запущено"})
}

// PauseHandler приостанавливает воспроизведение
// @Summary		Пауза
// @Description	Фиксирует остаток времени в целых секундах. Пауза без воспроизведения — тихий no-op.
// @Tags			playback
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Результат"
// @Router			/api/parties/{code}/pause [post]
func PauseHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	if !player.Pause(party, time.Now()) {
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Воспроизведение не было запущено"})
		return
	}

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения состояния плеера",
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventPlaybackPaused,
		Party:     party.Code,
		Data: gin.H{
			"remaining_sec": party.CurrentRemainingSec,
		},
	})
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Воспроизведение приостановлено"})
}

type AdvanceRequest struct {
	ItemID *uint `json:"item_id"` // Песня, которую клиент переключает, опционально
}

// AdvanceHandler помечает текущую песню сыгранной. Переключение адресное:
// ожиданием служит item_id из запроса либо загруженная в плеер песня, и если
// голова очереди с ним разошлась, запрос превращается в no-op. Так два
// одновременных skip переключают ровно одну песню, а не две. Единственное
// место записи played_at; условный UPDATE страхует и от гонки между
// процессами.
// @Summary		Переключение на следующую песню
// @Description	Помечает текущую песню сыгранной. item_id задаёт, какую именно песню переключает клиент; устаревшее ожидание и повторный одновременный вызов — no-op, а не ошибка.
// @Tags			playback
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			body	body		AdvanceRequest	false	"Ожидаемая текущая песня"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Результат"
// @Router			/api/parties/{code}/advance [post]
func AdvanceHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	var req AdvanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Ошибка валидации данных",
				Details: err.Error(),
			})
			return
		}
	}

	items, err := loadItems(party.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
		})
		return
	}

	head, advanced := player.Advance(party, items, req.ItemID, time.Now())
	if !advanced {
		// Вечеринка не запущена, либо названную песню уже переключили
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Переключать нечего"})
		return
	}

	raceLost := false
	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QueueItem{}).
			Where("id = ? AND played_at IS NULL", head.ID).
			Update("played_at", head.PlayedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			raceLost = true
			return nil
		}
		return tx.Save(party).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при переключении песни",
		})
		return
	}
	if raceLost {
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Переключать нечего"})
		return
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Песня переключена"})
}

// SkipTimerHandler — рекомендательное событие «идёт автопереключение».
// Клиенты блокируют кнопки skip; гарантий это не даёт, гонку закрывает
// блокировка комнаты в AdvanceHandler.
// @Summary		Уведомление об автопереключении
// @Tags			playback
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Success		200	{object}	response.SuccessResponse	"Событие разослано"
// @Failure		404	{object}	response.ErrorResponse	"Вечеринка не найдена (PARTY_NOT_FOUND)"
// @Router			/api/parties/{code}/skip-timer [post]
func SkipTimerHandler(c *gin.Context) {
	code := c.Param("code")

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "PARTY_NOT_FOUND",
			Message: "Вечеринка не найдена",
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventSkipTimerStarted,
		Party:     party.Code,
	})
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Событие разослано"})
}
