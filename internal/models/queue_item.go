package models

import (
	"time"

	"gorm.io/gorm"
)

type QueueItem struct {
	gorm.Model
	PartyID     uint   `gorm:"index;not null"`
	SingerName  string `gorm:"index;not null"` // Имя исполнителя, под которым добавлена песня
	Title       string `gorm:"not null"`
	CoverURL    string
	VideoID     string
	DurationSec int  `gorm:"not null"`
	AddedAt     int  `gorm:"index;not null"` // Монотонный порядковый номер в рамках вечеринки
	Position    int  // Позиция при ручной сортировке
	IsPriority  bool `gorm:"default:false"` // Приоритетная песня, ставится организатором
	PlayedAt    *time.Time
	TiebreakKey string `gorm:"not null"` // Разрешает порядок «одновременно» добавленных песен
}
