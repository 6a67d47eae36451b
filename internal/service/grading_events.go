package service

import (
	"encoding/json"
	"time"
)

// EventPublisher delivers fire-and-forget notifications. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// GradingCompletedEvent is published after a report has been archived.
type GradingCompletedEvent struct {
	StudentID    string    `json:"studentId"`
	JudgeGrade   float64   `json:"judgeGrade"`
	FinalGrade   float64   `json:"finalGrade"`
	Passed       bool      `json:"passed"`
	IsFair       bool      `json:"isFair"`
	AuditSkipped bool      `json:"auditSkipped"`
	Reference    string    `json:"reference"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

func encodeEvent(event GradingCompletedEvent) ([]byte, error) {
	return json.Marshal(event)
}
