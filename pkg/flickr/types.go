package flickr

import (
	"log/slog"
	"time"
)

// Default service endpoints
const (
	DefaultRESTURL    = "https://api.flickr.com/services/rest/"
	DefaultAuthURL    = "http://api.flickr.com/services/auth/"
	DefaultUploadURL  = "https://up.flickr.com/services/upload/"
	DefaultReplaceURL = "https://up.flickr.com/services/replace/"
)

// Error codes returned by the Flickr API
const (
	ErrCodeNoErrorCode        = 0
	ErrCodeInvalidSignature   = 96
	ErrCodeMissingSignature   = 97
	ErrCodeLoginFailed        = 98
	ErrCodeInsufficientPerms  = 99
	ErrCodeInvalidAPIKey      = 100
	ErrCodeServiceUnavailable = 105
	ErrCodeFormatNotFound     = 111
	ErrCodeMethodNotFound     = 112
	ErrCodeBadURLFound        = 116
)

const (
	noErrorCodeMessage     = "no error code returned by service"
	defaultCacheTimeout    = 300 * time.Second
	defaultCacheMaxEntries = 200
	defaultClientTimeout   = 30 * time.Second
	formContentType        = "application/x-www-form-urlencoded"
	authMethodPrefix       = "flickr.auth."
)

// Perms is the permission level requested during authorization
type Perms string

const (
	PermsRead   Perms = "read"
	PermsWrite  Perms = "write"
	PermsDelete Perms = "delete"
)

// Credentials identify the calling application. The secret is optional;
// without it requests go out unsigned and no auth URL can be built.
type Credentials struct {
	APIKey    string
	APISecret string
}

// CanSign reports whether the credentials carry a shared secret
func (c Credentials) CanSign() bool {
	return c.APISecret != ""
}

// ClientConfig holds the configuration for the Flickr client
type ClientConfig struct {
	APIKey     string
	APISecret  string
	RESTURL    string
	AuthURL    string
	UploadURL  string
	ReplaceURL string
	Timeout    time.Duration

	// Compression asks the service for gzip bodies and inflates them
	// before interpretation.
	Compression bool

	// Cache, when set, stores successful response bodies. flickr.auth.*
	// calls are never cached.
	Cache Cache

	// UncachedMethods always go to the service even with a Cache, for
	// methods whose answers must be fresh or are single use.
	UncachedMethods []string

	// Observers are notified once per completed Execute.
	Observers []Observer

	Logger *slog.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		RESTURL:    DefaultRESTURL,
		AuthURL:    DefaultAuthURL,
		UploadURL:  DefaultUploadURL,
		ReplaceURL: DefaultReplaceURL,
		Timeout:    defaultClientTimeout,
	}
}

// Credentials returns the key/secret pair of the configuration
func (c *ClientConfig) Credentials() Credentials {
	return Credentials{APIKey: c.APIKey, APISecret: c.APISecret}
}

// User describes the account an auth token belongs to
type User struct {
	NSID     string
	Username string
	Fullname string
}

// AuthInfo is the result of flickr.auth.getToken and flickr.auth.checkToken
type AuthInfo struct {
	Token string
	Perms Perms
	User  User
}
