package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeLowStockCheck  = "stock:low_check"
	TypeSessionCleanup = "auth:session_cleanup"
	QueueDefault       = "default"
	QueueMaintenance   = "maintenance"
)

// LowStockCheckPayload identifies the owner whose inventory to scan.
type LowStockCheckPayload struct {
	OwnerID string `json:"owner_id"`
}

// NewLowStockCheckTask builds the task enqueued after each completed order.
func NewLowStockCheckTask(ownerID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(LowStockCheckPayload{OwnerID: ownerID.String()})
	if err != nil {
		return nil, fmt.Errorf("tasks: encode payload: %w", err)
	}
	return asynq.NewTask(TypeLowStockCheck, payload, asynq.Queue(QueueDefault)), nil
}

// NewSessionCleanupTask builds the periodic expired-session prune task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeSessionCleanup, nil, asynq.Queue(QueueMaintenance))
}
