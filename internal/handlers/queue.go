package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"karaoke_party/internal/catalog"
	"karaoke_party/internal/models"
	"karaoke_party/internal/player"
	"karaoke_party/internal/response"
	"karaoke_party/internal/rooms"
	"karaoke_party/internal/scheduler"
	"karaoke_party/internal/storage"
	"karaoke_party/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SearchSongsHandler ищет песни во внешнем каталоге
// @Summary		Поиск песен
// @Description	Ищет песни по свободному запросу, результат кэшируется в Redis
// @Tags			songs
// @Produce		json
// @Param			q	query		string	true	"Поисковый запрос"
// @Success		200	{array}		catalog.Video	"Найденные песни"
// @Failure		400	{object}	response.ErrorResponse	"Пустой запрос (VALIDATION_ERROR)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка каталога (SEARCH_ERROR)"
// @Router			/api/songs/search [get]
func SearchSongsHandler(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Необходимо указать поисковый запрос q",
		})
		return
	}

	videos, err := catalog.SearchVideos(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "SEARCH_ERROR",
			Message: "Не удалось получить данные каталога",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, videos)
}

type AddItemRequest struct {
	SingerName string `json:"singer_name" binding:"required"`
	VideoID    string `json:"video_id" binding:"required"`
	Title      string `json:"title"`
	CoverURL   string `json:"cover_url"`
}

// AddItemHandler добавляет песню в очередь вечеринки
// @Summary		Добавление песни
// @Description	Разрешает метаданные песни через каталог и ставит её в очередь. Сбой каталога не мешает добавлению: подставляется безопасная длительность.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			item	body		AddItemRequest	true	"Песня"
// @Success		201	{object}	ws.ItemView	"Добавленный элемент очереди"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR) или вечеринка закрыта (PARTY_CLOSED)"
// @Failure		404	{object}	response.ErrorResponse	"Вечеринка не найдена (PARTY_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/parties/{code}/items [post]
func AddItemHandler(c *gin.Context) {
	code := c.Param("code")

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

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

	// Метаданные разрешаются один раз при добавлении, до захвата блокировки:
	// сетевой поход в каталог не должен держать комнату. Сбой каталога —
	// не отказ: берём то, что прислал клиент, и безопасную длительность.
	item := models.QueueItem{
		SingerName:  req.SingerName,
		Title:       req.Title,
		CoverURL:    req.CoverURL,
		VideoID:     req.VideoID,
		TiebreakKey: uuid.NewString(),
	}
	if video, err := catalog.VideoDetails(req.VideoID); err == nil {
		item.Title = video.Title
		item.CoverURL = video.CoverURL
		item.DurationSec = video.DurationSec
	} else {
		log.Println("Каталог недоступен, используем запасную длительность:", err)
		item.DurationSec = catalog.FallbackDurationSec()
	}
	if item.Title == "" {
		item.Title = "Без названия"
	}

	rooms.Lock(code)
	defer rooms.Unlock(code)

	// Перечитываем вечеринку под блокировкой: пока ходили в каталог,
	// её могли закрыть
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
	item.PartyID = party.ID

	var maxAddedAt int
	row := storage.DB.Model(&models.QueueItem{}).
		Where("party_id = ?", party.ID).
		Select("COALESCE(MAX(added_at),0)").Row()
	if err := row.Scan(&maxAddedAt); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка выделения порядкового номера",
		})
		return
	}
	item.AddedAt = maxAddedAt + 1
	item.Position = item.AddedAt

	if err := storage.DB.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка добавления песни в очередь",
		})
		return
	}

	// Исполнитель считается присутствующим с момента добавления песни
	if touchParticipant(&party, req.SingerName, "") {
		ws.BroadcastPresence(party.ID, party.Code)
	}

	if items, err := loadItems(party.ID); err == nil {
		if player.ResetForNewHead(&party, items) {
			storage.DB.Save(&party)
		}
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusCreated, gin.H{
		"id":           item.ID,
		"singer_name":  item.SingerName,
		"title":        item.Title,
		"cover_url":    item.CoverURL,
		"video_id":     item.VideoID,
		"duration_sec": item.DurationSec,
		"added_at":     item.AddedAt,
	})
}

// RemoveItemHandler удаляет несыгранную песню. Гость может удалить только
// свою (по имени исполнителя), организатор — любую.
// @Summary		Удаление песни из очереди
// @Tags			queue
// @Produce		json
// @Param			code		path		string	true	"Код вечеринки"
// @Param			itemID		path		int		true	"ID элемента очереди"
// @Param			singer_name	query		string	false	"Имя исполнителя (для гостей)"
// @Success		200	{object}	response.SuccessResponse	"Песня удалена"
// @Failure		400	{object}	response.ErrorResponse	"Песня уже сыграна (ALREADY_PLAYED) или вечеринка закрыта (PARTY_CLOSED)"
// @Failure		403	{object}	response.ErrorResponse	"Чужая песня (NOT_ITEM_OWNER)"
// @Failure		404	{object}	response.ErrorResponse	"Не найдено (PARTY_NOT_FOUND, ITEM_NOT_FOUND)"
// @Router			/api/parties/{code}/items/{itemID} [delete]
func RemoveItemHandler(c *gin.Context) {
	code := c.Param("code")
	itemID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ITEM_ID",
			Message: "Неверный идентификатор песни",
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

	var item models.QueueItem
	if err := storage.DB.Where("id = ? AND party_id = ?", itemID, party.ID).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ITEM_NOT_FOUND",
			Message: "Песня не найдена",
		})
		return
	}
	if item.PlayedAt != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "ALREADY_PLAYED",
			Message: "Сыгранную песню удалить нельзя",
		})
		return
	}

	if !isPartyHost(c, &party) && c.Query("singer_name") != item.SingerName {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_ITEM_OWNER",
			Message: "Удалять можно только свои песни",
		})
		return
	}

	if err := storage.DB.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при удалении песни",
		})
		return
	}

	player.Unload(&party, item.ID)
	if items, err := loadItems(party.ID); err == nil {
		player.ResetForNewHead(&party, items)
	}
	storage.DB.Save(&party)

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Песня удалена из очереди"})
}

type PriorityRequest struct {
	IsPriority *bool `json:"is_priority" binding:"required"`
}

// ToggleItemPriorityHandler помечает песню приоритетной
// @Summary		Приоритет песни
// @Description	Приоритетные песни играют раньше остальных независимо от режима
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			itemID	path		int				true	"ID элемента очереди"
// @Param			body	body		PriorityRequest	true	"Флаг приоритета"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Приоритет обновлён"
// @Router			/api/parties/{code}/items/{itemID}/priority [post]
func ToggleItemPriorityHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	itemID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ITEM_ID",
			Message: "Неверный идентификатор песни",
		})
		return
	}

	var req PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	var item models.QueueItem
	if err := storage.DB.Where("id = ? AND party_id = ?", itemID, party.ID).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ITEM_NOT_FOUND",
			Message: "Песня не найдена",
		})
		return
	}

	item.IsPriority = *req.IsPriority
	if err := storage.DB.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения приоритета",
		})
		return
	}

	if items, err := loadItems(party.ID); err == nil {
		if player.ResetForNewHead(party, items) {
			storage.DB.Save(party)
		}
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Приоритет обновлён"})
}

type ReorderRequest struct {
	ItemIDs []uint `json:"item_ids" binding:"required"`
}

// ReorderHandler задаёт явный порядок несыгранных песен
// @Summary		Ручная перестановка очереди
// @Description	Доступна только при включённой ручной сортировке. Сыгранные и неизвестные элементы игнорируются.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Param			code	path		string			true	"Код вечеринки"
// @Param			body	body		ReorderRequest	true	"Новый порядок"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Порядок обновлён"
// @Failure		400	{object}	response.ErrorResponse	"Ручная сортировка выключена (MANUAL_SORT_DISABLED)"
// @Router			/api/parties/{code}/reorder [post]
func ReorderHandler(c *gin.Context) {
	party, ok := loadHostParty(c)
	if !ok {
		return
	}
	defer rooms.Unlock(party.Code)

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	if !party.ManualSortEnabled {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "MANUAL_SORT_DISABLED",
			Message: "Ручная сортировка выключена",
		})
		return
	}

	for i, id := range req.ItemIDs {
		storage.DB.Model(&models.QueueItem{}).
			Where("id = ? AND party_id = ? AND played_at IS NULL", id, party.ID).
			Update("position", i+1)
	}

	if items, err := loadItems(party.ID); err == nil {
		if player.ResetForNewHead(party, items) {
			storage.DB.Save(party)
		}
	}

	ws.BroadcastPlaylist(party.Code)
	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Порядок очереди обновлён"})
}

// seedManualPositions фиксирует текущий автоматический порядок в позициях,
// чтобы ручная сортировка стартовала с того, что все видят на экране
func seedManualPositions(party *models.Party, items []models.QueueItem) {
	ordered := scheduler.Order(items, scheduler.LastPlayedSinger(items), scheduler.Policy{
		Fairness: party.FairnessEnabled,
	})
	for i, it := range ordered {
		storage.DB.Model(&models.QueueItem{}).
			Where("id = ?", it.ID).
			Update("position", i+1)
	}
}

// isPartyHost проверяет необязательный Bearer токен: организатор может
// действовать и на гостевых маршрутах
func isPartyHost(c *gin.Context, party *models.Party) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return false
	}
	tokenString := authHeader
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return AccessSecret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return false
	}
	return uint(userID) == party.HostID
}

// touchParticipant создаёт или обновляет запись присутствия.
// Возвращает true, если участник появился впервые.
func touchParticipant(party *models.Party, name, avatar string) bool {
	var participant models.Participant
	err := storage.DB.Where("party_id = ? AND name = ?", party.ID, name).First(&participant).Error
	now := time.Now()
	if err != nil {
		participant = models.Participant{
			PartyID:    party.ID,
			Name:       name,
			Avatar:     avatar,
			Role:       models.ParticipantRoleGuest,
			LastSeenAt: now,
		}
		storage.DB.Create(&participant)
		return true
	}
	participant.LastSeenAt = now
	if avatar != "" {
		participant.Avatar = avatar
	}
	storage.DB.Save(&participant)
	return false
}
