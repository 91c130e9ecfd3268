package models

// Report is a civic incident report filed by a user. Creating one triggers
// the push notification fan-out.
type Report struct {
	BaseModel

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	CategoryID  int    `gorm:"not null;default:1" json:"category_id"`
	Location    string `gorm:"type:text" json:"location"`
	CreatedBy   string `gorm:"type:uuid;not null;index" json:"created_by"`
}
