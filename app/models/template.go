package models

// Template is a ready-made starting point offered during onboarding.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Industry Industry `json:"industry"`
	Theme    Theme    `json:"theme"`
	Blocks   Blocks   `json:"blocks"`
}
