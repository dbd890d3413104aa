package models

// AlertStatus 报警投递状态
type AlertStatus string

const (
	AlertStatusSent   AlertStatus = "Sent"
	AlertStatusFailed AlertStatus = "Failed"
)

// AlertRecord 报警记录（对应 alerts 表，只追加）
type AlertRecord struct {
	ID        int64       `json:"id" db:"id"`
	Message   string      `json:"message" db:"message"`
	Timestamp string      `json:"timestamp" db:"timestamp"`
	Status    AlertStatus `json:"status" db:"status"`
}
