package models

import "time"

// Project is a named container of variables owned by exactly one user.
// UserID never changes after creation; deleting a project removes all
// variables it contains.
//
// VariableCount and SecretCount are derived on list queries and not
// stored.
type Project struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	VariableCount int       `json:"variable_count"`
	SecretCount   int       `json:"secret_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
