package models

import (
	"time"

	"gorm.io/gorm"
)

// Роли участников
const (
	ParticipantRoleHost  = "host"
	ParticipantRoleGuest = "guest"
)

// Participant — запись присутствия на вечеринке. Обновляется при входе и
// heartbeat-ах, из «активных» списков выпадает по окну давности, но из базы
// обработчиками не удаляется.
type Participant struct {
	gorm.Model
	PartyID    uint   `gorm:"index;not null"`
	Name       string `gorm:"index;not null"`
	Avatar     string
	Role       string    `gorm:"not null;default:guest"`
	LastSeenAt time.Time `gorm:"index;not null"`
}
