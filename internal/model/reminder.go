package model

import "time"

// DateLayout is the storage and wire form of a reminder date.
const DateLayout = "2006-01-02"

// Reminder is a date-tagged note owned by a chat recipient.
// Rows have no identity beyond ID; delete operations match on (RecipientID, Date).
type Reminder struct {
	ID          uint      `gorm:"primaryKey"`
	RecipientID int64     `gorm:"index:idx_recipient_date;not null"`
	Date        string    `gorm:"type:varchar(10);index:idx_recipient_date;not null"`
	Description string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
