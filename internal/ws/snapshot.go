package ws

import (
	"time"

	"karaoke_party/internal/models"
	"karaoke_party/internal/scheduler"
	"karaoke_party/internal/storage"
)

// ItemView — элемент очереди в исходящих событиях
type ItemView struct {
	ID          uint       `json:"id"`
	SingerName  string     `json:"singer_name"`
	Title       string     `json:"title"`
	CoverURL    string     `json:"cover_url,omitempty"`
	VideoID     string     `json:"video_id,omitempty"`
	DurationSec int        `json:"duration_sec"`
	AddedAt     int        `json:"added_at"`
	IsPriority  bool       `json:"is_priority"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
}

// ClockView — поля плеера; клиент ведёт локальный отсчёт как
// max(0, remaining_sec - floor(now - started_at)) пока started_at задан
type ClockView struct {
	CurrentItemID *uint      `json:"current_item_id"`
	StartedAt     *time.Time `json:"started_at"`
	RemainingSec  *int       `json:"remaining_sec"`
}

// SettingsView — настройки вечеринки
type SettingsView struct {
	FairnessEnabled   bool `json:"fairness_enabled"`
	ManualSortEnabled bool `json:"manual_sort_enabled"`
	PlaybackDisabled  bool `json:"playback_disabled"`
}

// PlaylistSnapshot — полный снимок состояния комнаты. Рассылается целиком
// вместо дельт: замена идемпотентна, а перестроение очереди может затронуть
// сколько угодно элементов.
type PlaylistSnapshot struct {
	Status      string       `json:"status"`
	Settings    SettingsView `json:"settings"`
	CurrentItem *ItemView    `json:"current_item"`
	Unplayed    []ItemView   `json:"unplayed"`
	Played      []ItemView   `json:"played"`
	Clock       ClockView    `json:"clock"`
}

// ParticipantView — участник в событии presence_updated
type ParticipantView struct {
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	Role       string    `json:"role"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// BuildPlaylistSnapshot собирает снимок состояния по свежим строкам базы
func BuildPlaylistSnapshot(party *models.Party, items []models.QueueItem) PlaylistSnapshot {
	played, _ := scheduler.SplitPlayed(items)
	ordered := scheduler.Order(items, scheduler.LastPlayedSinger(items), scheduler.PolicyOf(party))

	snapshot := PlaylistSnapshot{
		Status: party.Status,
		Settings: SettingsView{
			FairnessEnabled:   party.FairnessEnabled,
			ManualSortEnabled: party.ManualSortEnabled,
			PlaybackDisabled:  party.PlaybackDisabled,
		},
		Unplayed: make([]ItemView, 0, len(ordered)),
		Played:   make([]ItemView, 0, len(played)),
		Clock: ClockView{
			CurrentItemID: party.CurrentItemID,
			StartedAt:     party.CurrentStartedAt,
			RemainingSec:  party.CurrentRemainingSec,
		},
	}

	for _, it := range ordered {
		view := itemView(it)
		snapshot.Unplayed = append(snapshot.Unplayed, view)
		if party.CurrentItemID != nil && *party.CurrentItemID == it.ID {
			current := view
			snapshot.CurrentItem = &current
		}
	}
	for _, it := range played {
		snapshot.Played = append(snapshot.Played, itemView(it))
	}

	return snapshot
}

// BuildPlaylistMessage загружает вечеринку с очередью и собирает событие
// playlist_updated
func BuildPlaylistMessage(code string) (WSMessage, error) {
	var party models.Party
	if err := storage.DB.Where("code = ?", code).First(&party).Error; err != nil {
		return WSMessage{}, err
	}
	var items []models.QueueItem
	if err := storage.DB.Where("party_id = ?", party.ID).Find(&items).Error; err != nil {
		return WSMessage{}, err
	}
	return WSMessage{
		EventType: EventPlaylistUpdated,
		Party:     code,
		Data:      BuildPlaylistSnapshot(&party, items),
	}, nil
}

// BroadcastPlaylist рассылает свежий снимок всем клиентам комнаты
func BroadcastPlaylist(code string) {
	msg, err := BuildPlaylistMessage(code)
	if err != nil {
		return
	}
	HubInstance.BroadcastWSMessage(msg)
}

func itemView(it models.QueueItem) ItemView {
	return ItemView{
		ID:          it.ID,
		SingerName:  it.SingerName,
		Title:       it.Title,
		CoverURL:    it.CoverURL,
		VideoID:     it.VideoID,
		DurationSec: it.DurationSec,
		AddedAt:     it.AddedAt,
		IsPriority:  it.IsPriority,
		PlayedAt:    it.PlayedAt,
	}
}
