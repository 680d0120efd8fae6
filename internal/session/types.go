package session

import "strings"

// Session is the credential pair of the logged-in user. Token and Username
// are always written and cleared together.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (s Session) IsZero() bool {
	return strings.TrimSpace(s.Token) == ""
}
