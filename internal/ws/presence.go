package ws

import (
	"os"
	"strconv"
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/storage"

	"github.com/gin-gonic/gin"
)

// presenceWindow — окно давности, после которого участник выпадает из
// «активных» списков. Политика, не структура: настраивается через env.
func presenceWindow() time.Duration {
	minutes := 3
	if v := os.Getenv("PRESENCE_TTL_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * time.Minute
}

// ActiveParticipants возвращает участников, подававших признаки жизни в
// пределах окна давности
func ActiveParticipants(partyID uint) []ParticipantView {
	threshold := time.Now().Add(-presenceWindow())

	var participants []models.Participant
	storage.DB.
		Where("party_id = ? AND last_seen_at > ?", partyID, threshold).
		Order("last_seen_at DESC").
		Find(&participants)

	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{
			Name:       p.Name,
			Avatar:     p.Avatar,
			Role:       p.Role,
			LastSeenAt: p.LastSeenAt,
		})
	}
	return views
}

// BroadcastPresence рассылает комнате свежий список активных участников
func BroadcastPresence(partyID uint, code string) {
	HubInstance.BroadcastWSMessage(WSMessage{
		EventType: EventPresenceUpdated,
		Party:     code,
		Data: gin.H{
			"participants": ActiveParticipants(partyID),
		},
	})
}

// TouchPresence обновляет время последней активности участника по heartbeat.
// Если участник успел выпасть из окна давности, его возвращение — смена
// состава, и комната получает presence_updated; обычные heartbeat-ы состав
// не меняют и не рассылаются.
func TouchPresence(partyID uint, code, name string) {
	var participant models.Participant
	if err := storage.DB.
		Where("party_id = ? AND name = ?", partyID, name).
		First(&participant).Error; err != nil {
		return
	}

	wasStale := time.Since(participant.LastSeenAt) > presenceWindow()
	storage.DB.Model(&participant).Update("last_seen_at", time.Now())
	if wasStale {
		BroadcastPresence(partyID, code)
	}
}
