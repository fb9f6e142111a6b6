package domain

import "time"

// ProcessedComment marks a comment that has already been answered by an automation
type ProcessedComment struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AutomationID string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_processed_comments_automation_comment" json:"automation_id"`
	CommentID    string    `gorm:"size:64;not null;uniqueIndex:ux_processed_comments_automation_comment" json:"comment_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (ProcessedComment) TableName() string { return "processed_comments" }
