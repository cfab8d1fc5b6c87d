package models

import "time"

// GpxFile is the raw uploaded track. FileName is globally unique.
type GpxFile struct {
	ID         int64     `gorm:"column:gpx_file_id;primaryKey;autoIncrement" bson:"_id" json:"gpx_file_id"`
	FileName   string    `gorm:"column:file_name;not null;uniqueIndex" bson:"file_name" json:"file_name"`
	Content    string    `gorm:"column:gpx_content" bson:"gpx_content" json:"gpx_content,omitempty"`
	UploadedAt time.Time `gorm:"column:uploaded_at;not null;index" bson:"uploaded_at" json:"uploaded_at"`
}

func (GpxFile) TableName() string {
	return "gpx_files"
}

// FileSummary is the listing projection of a GpxFile, without content.
type FileSummary struct {
	ID         int64     `gorm:"column:gpx_file_id" bson:"_id" json:"id"`
	FileName   string    `gorm:"column:file_name" bson:"file_name" json:"file_name"`
	UploadedAt time.Time `gorm:"column:uploaded_at" bson:"uploaded_at" json:"uploaded_at"`
}
