package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradingReport indexes an archived report so past results can be listed per student.
type GradingReport struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	StudentID    string         `gorm:"size:128;not null;index" json:"student_id"`
	JudgeGrade   float64        `gorm:"not null" json:"judge_grade"`
	FinalGrade   float64        `gorm:"not null" json:"final_grade"`
	IsFair       bool           `json:"is_fair"`
	AuditSkipped bool           `json:"audit_skipped"`
	FolderID     string         `gorm:"size:256" json:"folder_id"`
	FileName     string         `gorm:"size:256" json:"file_name"`
	Reference    string         `gorm:"size:1024" json:"reference"`
	Details      datatypes.JSON `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
}
