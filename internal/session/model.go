package session

import "time"

// Stage is the state of a two-factor session. The only legal path is
// AwaitingFace -> AwaitingPin -> Authenticated; Restart returns to
// AwaitingFace and discards the tentative match.
type Stage string

const (
	// StageAwaitingFace waits for a face capture.
	StageAwaitingFace Stage = "awaiting_face"
	// StageAwaitingPin holds a tentative face match pending PIN confirmation.
	StageAwaitingPin Stage = "awaiting_pin"
	// StageAuthenticated is terminal: both factors passed for one identity.
	StageAuthenticated Stage = "authenticated"
)

// Session tracks one caller's progress through the two-factor flow.
// IdentityID is set by a successful face match and never changes except
// through Restart.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id,omitempty"`
	Stage      Stage     `json:"stage"`
	CreatedAt  time.Time `json:"created_at"`
}
