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
	"github.com/google/uuid"
)

type CreatePartyRequest struct {
	Name     string     `json:"name" binding:"required"`
	ClosesAt *time.Time `json:"closes_at"`
}

type PartyResponse struct {
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	FairnessEnabled   bool       `json:"fairness_enabled"`
	ManualSortEnabled bool       `json:"manual_sort_enabled"`
	PlaybackDisabled  bool       `json:"playback_disabled"`
	ClosesAt          *time.Time `json:"closes_at,omitempty"`
}

func partyResponse(p *models.Party) PartyResponse {
	return PartyResponse{
		Code:              p.Code,
		Name:              p.Name,
		Status:            p.Status,
		FairnessEnabled:   p.FairnessEnabled,
		ManualSortEnabled: p.ManualSortEnabled,
		PlaybackDisabled:  p.PlaybackDisabled,
		ClosesAt:          p.ClosesAt,
	}
}

// CreatePartyHandler создаёт вечеринку
// @Summary		Создание вечеринки
// @Description	Создаёт вечеринку и возвращает код приглашения для гостей
// @Tags			party
// @Accept			json
// @Produce		json
// @Param			party	body		CreatePartyRequest	true	"Данные вечеринки"
// @Security		BearerAuth
// @Success		201	{object}	PartyResponse	"Созданная вечеринка"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/parties [post]
func CreatePartyHandler(c *gin.Context) {
	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	hostID := c.GetUint("userID")
	var host models.User
	if err := storage.DB.First(&host, hostID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "USER_NOT_FOUND",
			Message: "Организатор не найден",
		})
		return
	}

	party := models.Party{
		Code:            uuid.NewString(),
		Name:            req.Name,
		HostID:          hostID,
		Status:          models.PartyStatusOpen,
		FairnessEnabled: true,
		ClosesAt:        req.ClosesAt,
	}
	if err := storage.DB.Create(&party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании вечеринки",
		})
		return
	}

	// Организатор сразу становится участником с ролью host
	participant := models.Participant{
		PartyID:    party.ID,
		Name:       host.Name,
		Role:       models.ParticipantRoleHost,
		LastSeenAt: time.Now(),
	}
	storage.DB.Create(&participant)

	c.JSON(http.StatusCreated, partyResponse(&party))
}

// GetPartySnapshotHandler возвращает полный снимок состояния вечеринки
// @Summary		Снимок состояния вечеринки
// @Description	Текущая песня, упорядоченная очередь, сыгранные песни, настройки и плеер
// @Tags			party
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Success		200		{object}	ws.PlaylistSnapshot	"Снимок состояния"
// @Failure		404		{object}	response.ErrorResponse	"Вечеринка не найдена (PARTY_NOT_FOUND)"
// @Router			/api/parties/{code} [get]
func GetPartySnapshotHandler(c *gin.Context) {
	code := c.Param("code")

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "PARTY_NOT_FOUND",
			Message: "Вечеринка не найдена",
		})
		return
	}

	var items []models.QueueItem
	if err := storage.DB.Where("party_id = ?", party.ID).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
		})
		return
	}

	c.JSON(http.StatusOK, ws.BuildPlaylistSnapshot(&party, items))
}

// loadHostParty захватывает блокировку комнаты, загружает вечеринку по коду
// и проверяет, что запрос делает её организатор. Строка читается только под
// блокировкой: решение принимается по актуальному состоянию, а не по снимку,
// сделанному до конкурирующей мутации. При ошибке блокировка уже снята и
// ответ записан; при успехе вызывающий обязан выполнить
// rooms.Unlock(party.Code).
func loadHostParty(c *gin.Context) (*models.Party, bool) {
	code := c.Param("code")
	rooms.Lock(code)

	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		rooms.Unlock(code)
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "PARTY_NOT_FOUND",
			Message: "Вечеринка не найдена",
		})
		return nil, false
	}

	if party.HostID != c.GetUint("userID") {
		rooms.Unlock(code)
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_PARTY_HOST",
			Message: "Действие доступно только организатору вечеринки",
		})
		return nil, false
	}

	return &party, true
}

func loadItems(partyID uint) ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := storage.DB.Where("party_id = ?", partyID).Find(&items).Error
	return items, err
}

// StartPartyHandler запускает вечеринку (open → started)
// @Summary		Запуск вечеринки
// @Description	Переводит вечеринку из ожидания в активное состояние и загружает первую песню
// @Tags			party
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Вечеринка запущена"
// @Failure		400	{object}	response.ErrorResponse	"Недопустимый переход (INVALID_STATUS)"
// @Router			/api/parties/{code}/start [post]
func StartPartyHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	if party.Status != models.PartyStatusOpen {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_STATUS",
			Message: "Запустить можно только открытую вечеринку",
		})
		return
	}

	party.Status = models.PartyStatusStarted
	items, err := loadItems(party.ID)
	if err == nil {
		player.ResetForNewHead(party, items)
	}

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при запуске вечеринки",
		})
		return
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Вечеринка запущена"})
}

// IntermissionHandler объявляет антракт (started → open)
// @Summary		Антракт
// @Description	Приостанавливает вечеринку и сбрасывает плеер
// @Tags			party
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Антракт объявлен"
// @Router			/api/parties/{code}/intermission [post]
func IntermissionHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	if !player.Intermission(party) {
		// Недопустимый переход игнорируется без рассылки
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Вечеринка не была запущена"})
		return
	}

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при объявлении антракта",
		})
		return
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Антракт объявлен"})
}

// ClosePartyHandler закрывает вечеринку навсегда
// @Summary		Закрытие вечеринки
// @Description	Переводит вечеринку в терминальное состояние, дальнейшие изменения запрещены
// @Tags			party
// @Produce		json
// @Param			code	path		string	true	"Код вечеринки"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Вечеринка закрыта"
// @Router			/api/parties/{code}/close [post]
func ClosePartyHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	if party.Status == models.PartyStatusClosed {
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Вечеринка уже закрыта"})
		return
	}

	party.Status = models.PartyStatusClosed
	party.CurrentItemID = nil
	party.CurrentStartedAt = nil
	party.CurrentRemainingSec = nil

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при закрытии вечеринки",
		})
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: ws.EventPartyClosed,
		Party:     party.Code,
	})
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Вечеринка закрыта"})
}

type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ToggleFairnessHandler переключает честную ротацию исполнителей
// @Summary		Переключение честной ротации
// @Tags			party
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			body	body		ToggleRequest	true	"Флаг"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Настройка обновлена"
// @Router			/api/parties/{code}/fairness [post]
func ToggleFairnessHandler(c *gin.Context) {
	updatePartySetting(c, func(party *models.Party, enabled bool) {
		party.FairnessEnabled = enabled
	})
}

// TogglePlaybackDisabledHandler переключает автоматику плеера: при enabled
// таймер становится информационным, а переключение песен — ручным
// @Summary		Переключение ручного режима плеера
// @Tags			party
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			body	body		ToggleRequest	true	"Флаг"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Настройка обновлена"
// @Router			/api/parties/{code}/playback-disabled [post]
func TogglePlaybackDisabledHandler(c *gin.Context) {
	updatePartySetting(c, func(party *models.Party, enabled bool) {
		party.PlaybackDisabled = enabled
	})
}

// ToggleManualSortHandler переключает ручную сортировку. При включении
// текущий автоматический порядок фиксируется в позициях, при выключении
// порядок пересчитывается заново, ручная перестановка забывается.
// @Summary		Переключение ручной сортировки
// @Tags			party
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			body	body		ToggleRequest	true	"Флаг"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Настройка обновлена"
// @Router			/api/parties/{code}/manual-sort [post]
func ToggleManualSortHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
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

	items, err := loadItems(party.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки очереди",
		})
		return
	}

	if *req.Enabled && !party.ManualSortEnabled {
		// Стартуем ручной порядок с текущего автоматического
		seedManualPositions(party, items)
	}
	party.ManualSortEnabled = *req.Enabled

	items, _ = loadItems(party.ID)
	player.ResetForNewHead(party, items)

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения настройки",
		})
		return
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Настройка обновлена"})
}

func updatePartySetting(c *gin.Context, apply func(*models.Party, bool)) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
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

	apply(party, *req.Enabled)

	if items, err := loadItems(party.ID); err == nil {
		player.ResetForNewHead(party, items)
	}

	if err := storage.DB.Save(party).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения настройки",
		})
		return
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Настройка обновлена"})
}
