package flickr

import (
	"context"
	"fmt"
	"net/url"
)

// BuildAuthURL returns the URL a user visits to authorize the application.
// It returns nil when the credentials carry no secret. frob is optional.
func BuildAuthURL(creds Credentials, endpoint string, perms Perms, frob string) *url.URL {
	args := Args{"perms": string(perms)}
	if frob != "" {
		args["frob"] = frob
	}
	return buildAuthURL(creds, endpoint, args)
}

func buildAuthURL(creds Credentials, endpoint string, args Args) *url.URL {
	if !creds.CanSign() {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil
	}
	final := args.Clone()
	final["api_key"] = creds.APIKey
	final["api_sig"] = Sign(creds.APISecret, final)

	q := make(url.Values, len(final))
	for k, v := range final {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u
}

// AuthURL returns the desktop authorization URL for frob, or nil without
// a secret.
func (c *Client) AuthURL(perms Perms, frob string) *url.URL {
	return BuildAuthURL(c.Credentials(), c.config.AuthURL, perms, frob)
}

// WebLoginURL returns the web application authorization URL. The service
// echoes extra back to the registered callback URL along with the frob.
func (c *Client) WebLoginURL(perms Perms, extra string) *url.URL {
	args := Args{"perms": string(perms)}
	if extra != "" {
		args["extra"] = extra
	}
	return buildAuthURL(c.Credentials(), c.config.AuthURL, args)
}

// GetFrob requests a frob for the desktop authorization flow
func (c *Client) GetFrob(ctx context.Context) (string, error) {
	if !c.Credentials().CanSign() {
		return "", ErrNoSecret
	}
	rsp, err := c.Call(ctx, "flickr.auth.getFrob", nil)
	if err != nil {
		return "", err
	}
	frob := rsp.TextOf("frob")
	if frob == "" {
		return "", &ProtocolError{Status: 200, Message: "response has no frob"}
	}
	return frob, nil
}

// GetToken exchanges an authorized frob for an auth token
func (c *Client) GetToken(ctx context.Context, frob string) (*AuthInfo, error) {
	if !c.Credentials().CanSign() {
		return nil, ErrNoSecret
	}
	rsp, err := c.Call(ctx, "flickr.auth.getToken", Args{"frob": frob})
	if err != nil {
		return nil, err
	}
	return parseAuth(rsp)
}

// CheckToken validates token and returns its permissions and owner
func (c *Client) CheckToken(ctx context.Context, token string) (*AuthInfo, error) {
	if !c.Credentials().CanSign() {
		return nil, ErrNoSecret
	}
	rsp, err := c.Call(ctx, "flickr.auth.checkToken", Args{"auth_token": token})
	if err != nil {
		return nil, err
	}
	return parseAuth(rsp)
}

func parseAuth(rsp *Node) (*AuthInfo, error) {
	auth := rsp.Child("auth")
	if auth == nil {
		return nil, &ProtocolError{Status: 200, Message: "response has no auth element"}
	}
	info := &AuthInfo{
		Token: auth.TextOf("token"),
		Perms: Perms(auth.TextOf("perms")),
	}
	if user := auth.Child("user"); user != nil {
		info.User = User{
			NSID:     user.Attr("nsid"),
			Username: user.Attr("username"),
			Fullname: user.Attr("fullname"),
		}
	}
	if info.Token == "" {
		return nil, &ProtocolError{Status: 200, Message: fmt.Sprintf("auth for %q has no token", info.User.Username)}
	}
	return info, nil
}
