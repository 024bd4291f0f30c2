package models

type AudioAsset struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds" gorm:"default:0"`
}
