package handlers

import (
	"net/http"

	"karaoke_party/internal/models"
	"karaoke_party/internal/response"
	"karaoke_party/internal/rooms"
	"karaoke_party/internal/storage"
	"karaoke_party/internal/ws"

	"github.com/gin-gonic/gin"
)

type JoinRequest struct {
	Name   string `json:"name" binding:"required"`
	Avatar string `json:"avatar"`
}

// JoinPartyHandler регистрирует гостя на вечеринке
// @Summary		Вход на вечеринку
// @Description	Создаёт или обновляет запись присутствия и возвращает полный снимок состояния: гость видит текущую истину до любых своих действий
// @Tags			presence
// @Accept			json
// @Produce		json
// @Param			code	path		string		true	"Код вечеринки"
// @Param			guest	body		JoinRequest	true	"Имя и аватар гостя"
// @Success		200	{object}	map[string]interface{}	"Снимок состояния и признак нового исполнителя"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR) или вечеринка закрыта (PARTY_CLOSED)"
// @Failure		404	{object}	response.ErrorResponse	"Вечеринка не найдена (PARTY_NOT_FOUND)"
// @Router			/api/parties/{code}/join [post]
func JoinPartyHandler(c *gin.Context) {
	code := c.Param("code")

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	rooms.Lock(code)
	defer rooms.Unlock(code)

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "PARTY_NOT_FOUND",
			Message: "Вечеринка не найдена",
		})
		return
	}
	if party.Status == models.PartyStatusClosed {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "PARTY_CLOSED",
			Message: "Вечеринка закрыта",
		})
		return
	}

	isNew := touchParticipant(&party, req.Name, req.Avatar)

	ws.BroadcastPresence(party.ID, party.Code)

	var items []models.QueueItem
	storage.DB.Where("party_id = ?", party.ID).Find(&items)

	c.JSON(http.StatusOK, gin.H{
		"is_new_singer": isNew,
		"party":         partyResponse(&party),
		"snapshot":      ws.BuildPlaylistSnapshot(&party, items),
	})
}

type HeartbeatRequest struct {
	Name string `json:"name" binding:"required"`
}

// HeartbeatHandler обновляет время последней активности участника.
// Полностью инертен: ни несуществующая вечеринка, ни неизвестное имя
// не считаются ошибкой. Возвращение выпавшего участника рассылает
// presence_updated (см. ws.TouchPresence).
// @Summary		Heartbeat участника
// @Tags			presence
// @Accept			json
// @Produce		json
// @Param			code	path		string				true	"Код вечеринки"
// @Param			body	body		HeartbeatRequest	true	"Имя участника"
// @Success		200	{object}	response.SuccessResponse	"Принято"
// @Router			/api/parties/{code}/heartbeat [post]
func HeartbeatHandler(c *gin.Context) {
	code := c.Param("code")

	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Принято"})
		return
	}

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err == nil {
		ws.TouchPresence(party.ID, party.Code, req.Name)
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Принято"})
}

// ActiveParticipantsHandler возвращает активных участников вечеринки
// @Summary		Активные участники
// @Description	Участники, подававшие признаки жизни в пределах окна давности
// @Tags			presence
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Success		200	{array}		ws.ParticipantView	"Список участников"
// @Failure		404	{object}	response.ErrorResponse	"Вечеринка не найдена (PARTY_NOT_FOUND)"
// @Router			/api/parties/{code}/participants [get]
func ActiveParticipantsHandler(c *gin.Context) {
	code := c.Param("code")

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "PARTY_NOT_FOUND",
			Message: "Вечеринка не найдена",
		})
		return
	}

	c.JSON(http.StatusOK, ws.ActiveParticipants(party.ID))
}
