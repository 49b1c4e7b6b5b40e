package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskConsistencyAudit = "territory.audit"

type ConsistencyAuditPayload struct {
	Trigger string `json:"trigger"`
}

func NewConsistencyAuditTask(payload ConsistencyAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConsistencyAudit, data), nil
}

func ParseConsistencyAuditPayload(task *asynq.Task) (ConsistencyAuditPayload, error) {
	var payload ConsistencyAuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConsistencyAuditPayload{}, err
	}
	return payload, nil
}
