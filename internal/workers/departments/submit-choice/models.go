// internal/workers/departments/submit-choice/models.go
package submitchoice

import "onboarding-bot/internal/models"

type Input struct {
	Interaction models.Interaction `json:"interaction"`
	ActionID    string             `json:"actionId"`
}

// Output is the request opened for the member.
type Output struct {
	Request models.PendingRequest `json:"request"`
}
