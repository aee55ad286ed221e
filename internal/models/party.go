package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы вечеринки
const (
	PartyStatusOpen    = "open"    // Вечеринка открыта, воспроизведение приостановлено (до начала или антракт)
	PartyStatusStarted = "started" // Очередь активно проигрывается
	PartyStatusClosed  = "closed"  // Вечеринка завершена, изменения запрещены
)

type Party struct {
	gorm.Model
	Code              string `gorm:"uniqueIndex;not null"` // Код приглашения, по которому гости находят вечеринку
	Name              string `gorm:"not null"`             // Название вечеринки
	HostID            uint   `gorm:"index;not null"`       // Организатор (владелец)
	Host              User   `gorm:"foreignKey:HostID"`
	Status            string `gorm:"not null;default:open"`
	FairnessEnabled   bool   `gorm:"default:true"`  // Честная ротация исполнителей вместо простого FIFO
	ManualSortEnabled bool   `gorm:"default:false"` // Ручная сортировка очереди организатором
	PlaybackDisabled  bool   `gorm:"default:false"` // Таймер только информационный, переключение вручную

	// Поля плеера. CurrentStartedAt != nil возможно только при Status == started.
	CurrentItemID       *uint
	CurrentStartedAt    *time.Time
	CurrentRemainingSec *int

	ClosesAt *time.Time `gorm:"index"` // Время автоматического закрытия вечеринки (опционально)
}
