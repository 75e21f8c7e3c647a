package entity

type EventType string

const (
	EventTaskCreated EventType = "TASK_CREATED"
	EventTaskUpdated EventType = "TASK_UPDATED"
	EventTaskDeleted EventType = "TASK_DELETED"
)

// Event is a live update pushed to connected clients. It is never persisted.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

func TaskCreatedEvent(task *Task) Event {
	return Event{Type: EventTaskCreated, Payload: task.Clone()}
}

func TaskUpdatedEvent(task *Task) Event {
	return Event{Type: EventTaskUpdated, Payload: task.Clone()}
}

func TaskDeletedEvent(taskID int) Event {
	return Event{Type: EventTaskDeleted, Payload: map[string]int{"id": taskID}}
}
