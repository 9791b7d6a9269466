package igclient

import (
	"fmt"
	"strings"

	"github.com/codehamsters/instabot/internal/fsstore"
)

// Session holds the already-established credentials for the private API.
// Producing this file (login, challenge handling) is outside this program;
// it only consumes one.
type Session struct {
	UserAgent         string            `json:"user_agent"`
	AuthorizationData authorizationData `json:"authorization_data"`
}

type authorizationData struct {
	DSUserID  string `json:"ds_user_id"`
	SessionID string `json:"sessionid"`
}

func (s Session) UserID() string {
	return strings.TrimSpace(s.AuthorizationData.DSUserID)
}

func LoadSession(path string) (Session, error) {
	var session Session
	ok, err := fsstore.ReadJSON(path, &session)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, fmt.Errorf("session file not found: %s (log in with another tool and export it first)", path)
	}
	if session.UserID() == "" || strings.TrimSpace(session.AuthorizationData.SessionID) == "" {
		return Session{}, fmt.Errorf("session file %s is missing ds_user_id or sessionid", path)
	}
	return session, nil
}
