// Package domain contains the records persisted by the flickrapi tools
package domain

import (
	"time"

	"github.com/alexbotov/flickrapi/pkg/flickr"
)

// StoredToken is an auth token kept between runs for one API key
type StoredToken struct {
	APIKey    string       `json:"api_key"`
	Token     string       `json:"token"`
	Perms     flickr.Perms `json:"perms"`
	NSID      string       `json:"nsid"`
	Username  string       `json:"username"`
	Fullname  string       `json:"fullname"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewStoredToken builds a StoredToken from an auth result
func NewStoredToken(apiKey string, info *flickr.AuthInfo, now time.Time) *StoredToken {
	return &StoredToken{
		APIKey:    apiKey,
		Token:     info.Token,
		Perms:     info.Perms,
		NSID:      info.User.NSID,
		Username:  info.User.Username,
		Fullname:  info.User.Fullname,
		CreatedAt: now.UTC(),
	}
}

// permsRank orders permission levels; each level includes the ones below
var permsRank = map[flickr.Perms]int{
	flickr.PermsRead:   1,
	flickr.PermsWrite:  2,
	flickr.PermsDelete: 3,
}

// Covers reports whether the token grants at least the wanted permissions
func (t *StoredToken) Covers(wanted flickr.Perms) bool {
	have, ok := permsRank[t.Perms]
	if !ok {
		return false
	}
	need, ok := permsRank[wanted]
	if !ok {
		return t.Perms == wanted
	}
	return have >= need
}

// APICall is one journaled Flickr call
type APICall struct {
	ID          string    `json:"id"`
	Method      string    `json:"method"`
	Outcome     string    `json:"outcome"`
	HTTPStatus  int       `json:"http_status"`
	ErrorCode   int       `json:"error_code,omitempty"`
	Cached      bool      `json:"cached"`
	DurationMS  int64     `json:"duration_ms"`
	RequestedAt time.Time `json:"requested_at"`
}
