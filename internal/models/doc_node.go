package models

import (
	"time"

	"gorm.io/datatypes"
)

// DocNode is one stored fragment of the document tree. A fragment owns every
// location under Path that is not itself owned by a deeper row.
type DocNode struct {
	Path      string         `gorm:"primaryKey;size:512"`
	Value     datatypes.JSON `gorm:"not null"`
	Version   int64          `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
