package model

type Practitioner struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
	Active bool   `json:"active"`
}

// Subject is the patient, a pet.
type Subject struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Notification is handed to the notifier after a lifecycle transition.
type Notification struct {
	SubjectID  string         `json:"subject_id"`
	Channel    string         `json:"channel"`
	TemplateID string         `json:"template_id"`
	Priority   string         `json:"priority"`
	Payload    map[string]any `json:"payload"`
}
