package models

import "time"

// Variable is a key/value entry inside a project. Key is unique within
// its project (case-sensitive). When IsSecret is true, Value holds the
// output of the value cipher's encrypt operation; plaintext secret
// values never reach storage. IsSecret is fixed at creation time.
type Variable struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	IsSecret    bool      `json:"is_secret"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
