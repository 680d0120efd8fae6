package api

import (
	"encoding/json"
	"errors"
	"strings"
)

type Platform string

const (
	PlatformTwitch    Platform = "twitch"
	PlatformDiscord   Platform = "discord"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// Platforms lists every linkable third-party platform.
var Platforms = []Platform{PlatformTwitch, PlatformDiscord, PlatformInstagram, PlatformYouTube}

// handleField is the request body field the backend reads for each platform.
func (p Platform) handleField() string {
	switch p {
	case PlatformTwitch:
		return "twitchUsername"
	case PlatformDiscord:
		return "discordUsername"
	case PlatformInstagram:
		return "instagramHandle"
	case PlatformYouTube:
		return "youtubeChannel"
	}
	return ""
}

func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	return p, p.handleField() != ""
}

type FollowState string

const (
	FollowStateNotFollowing FollowState = "not_following"
	FollowStateFollowing    FollowState = "following"
	FollowStateRequested    FollowState = "requested"
	FollowStateSelf         FollowState = "self"
)

// GameConnection is a game linked to a profile. The backend sends either a
// bare game name or an object with the external account details.
type GameConnection struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

func (g *GameConnection) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*g = GameConnection{Name: name}
		return nil
	}
	type plain GameConnection
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*g = GameConnection(p)
	return nil
}

// GameDetails identifies the player's account in a connected game. Callers
// are expected to set at least one field.
type GameDetails struct {
	Username string
	ID       string
}

type Profile struct {
	ID              int              `json:"id,omitempty"`
	Username        string           `json:"username"`
	IsPrivate       bool             `json:"isPrivate"`
	FollowersCount  int              `json:"followersCount"`
	FollowingCount  int              `json:"followingCount"`
	IsFollowing     bool             `json:"isFollowing"`
	FollowState     FollowState      `json:"followState,omitempty"`
	TwitchUsername  string           `json:"twitchUsername,omitempty"`
	DiscordUsername string           `json:"discordUsername,omitempty"`
	InstagramHandle string           `json:"instagramHandle,omitempty"`
	YoutubeChannel  string           `json:"youtubeChannel,omitempty"`
	FavoriteGames   string           `json:"favoriteGames,omitempty"`
	ConnectedGames  []GameConnection `json:"connectedGames"`
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return errors.New("profile has no username")
	}
	if p.FollowersCount < 0 || p.FollowingCount < 0 {
		return errors.New("profile has negative follow counts")
	}
	return nil
}

// LinkedAccounts returns the non-empty platform handles of the profile.
func (p Profile) LinkedAccounts() map[Platform]string {
	out := make(map[Platform]string, len(Platforms))
	for platform, handle := range map[Platform]string{
		PlatformTwitch:    p.TwitchUsername,
		PlatformDiscord:   p.DiscordUsername,
		PlatformInstagram: p.InstagramHandle,
		PlatformYouTube:   p.YoutubeChannel,
	} {
		if handle != "" {
			out[platform] = handle
		}
	}
	return out
}

type AuthResult struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type HealthStatus struct {
	Status string `json:"status"`
}

type PrivacySettings struct {
	IsPrivate bool   `json:"isPrivate"`
	Message   string `json:"message,omitempty"`
}

type FollowResult struct {
	FollowState FollowState `json:"followState"`
	Message     string      `json:"message,omitempty"`
}

type FollowStatus struct {
	IsFollowing    bool        `json:"isFollowing"`
	FollowState    FollowState `json:"followState"`
	FollowersCount int         `json:"followersCount"`
}

// Ack is the generic acknowledgement body of mutating endpoints.
type Ack struct {
	Message string `json:"message,omitempty"`
}
