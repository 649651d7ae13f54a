package database

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Transmission is one finished RF transmission through a repeater
type Transmission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Repeater  string    `gorm:"index;size:8;not null" json:"repeater"`
	MyCall1   string    `gorm:"index;size:8;not null" json:"my_call1"`
	MyCall2   string    `gorm:"size:4" json:"my_call2"`
	YourCall  string    `gorm:"size:8" json:"your_call"`
	Route     string    `gorm:"size:16" json:"route"`
	Link      string    `gorm:"size:8" json:"link"`
	Frames    uint      `gorm:"default:0" json:"frames"`
	Silence   uint      `gorm:"default:0" json:"silence"`
	Errors    uint      `gorm:"default:0" json:"errors"`
	Text      string    `gorm:"size:20" json:"text"`
	Duration  float64   `gorm:"not null" json:"duration"` // Duration in seconds
	StartTime time.Time `gorm:"index;not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Transmission
func (Transmission) TableName() string {
	return "transmissions"
}

// BeforeCreate hook to ensure StartTime and EndTime are set
func (t *Transmission) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.EndTime.IsZero() {
		t.EndTime = now
	}
	if t.StartTime.IsZero() {
		t.StartTime = t.EndTime.Add(-time.Duration(t.Duration * float64(time.Second)))
	}
	return nil
}

// LossPercent returns the share of frames with errors
func (t *Transmission) LossPercent() float64 {
	if t.Frames == 0 {
		return 0
	}
	return float64(t.Errors) * 100 / float64(t.Frames)
}

// HeaderLog is one received header, RF or network
type HeaderLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Source    string    `gorm:"index;size:16" json:"source"`
	MyCall1   string    `gorm:"index;size:8" json:"my_call1"`
	MyCall2   string    `gorm:"size:4" json:"my_call2"`
	YourCall  string    `gorm:"size:8" json:"your_call"`
	RptCall1  string    `gorm:"size:8" json:"rpt_call1"`
	RptCall2  string    `gorm:"size:8" json:"rpt_call2"`
	Flag1     uint8     `json:"flag1"`
	Flag2     uint8     `json:"flag2"`
	Flag3     uint8     `json:"flag3"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for HeaderLog
func (HeaderLog) TableName() string {
	return "header_log"
}

// HostEntry is a reflector or repeater location from a host file
type HostEntry struct {
	Callsign  string    `gorm:"primarykey;size:8;not null" json:"callsign"`
	Gateway   string    `gorm:"size:8" json:"gateway"`
	Address   string    `gorm:"size:64;not null" json:"address"`
	Protocol  string    `gorm:"index;size:8;not null" json:"protocol"`
	Locked    bool      `gorm:"default:false" json:"locked"` // Not replaced by downloads
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for HostEntry
func (HostEntry) TableName() string {
	return "hosts"
}

// Name returns the callsign without padding
func (h *HostEntry) Name() string {
	return strings.TrimSpace(h.Callsign)
}

// UserRoute is the last known location of a user from the directory
type UserRoute struct {
	Callsign  string    `gorm:"primarykey;size:8;not null" json:"callsign"`
	Repeater  string    `gorm:"size:8;not null" json:"repeater"`
	Gateway   string    `gorm:"size:8" json:"gateway"`
	Address   string    `gorm:"size:64" json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserRoute
func (UserRoute) TableName() string {
	return "user_routes"
}
