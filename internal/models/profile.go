package models

// Profile is the subset of the remote user profile this service reads.
// IsJudge is owned by the profile collaborator and flipped server-side
// only after a passing quiz submission is validated remotely.
type Profile struct {
	UserID  string `json:"user_id"`
	IsJudge bool   `json:"is_judge"`
}
