// Package flickr provides a client for the Flickr REST API.
//
// Calls are sent as form encoded POST requests and answered with an XML
// envelope:
//
//	<rsp stat="ok"> ... </rsp>
//	<rsp stat="fail"><err code="112" msg="Method not found"/></rsp>
//
// # Authentication
//
// Every request carries the application's API key. When the client is
// configured with the shared secret, requests are signed: the api_sig
// argument is the MD5 of the secret followed by all argument names and
// values in sorted order. Without a secret requests go out unsigned and
// AuthURL returns nil.
//
// The token helpers GetFrob, GetToken and CheckToken, as well as Upload and
// Replace, return ErrNoSecret without sending anything when the client has
// no secret, since the service rejects those calls unsigned. Plain Execute
// and Call still send unsigned requests and leave rejection to the service.
//
// # Basic Usage
//
//	client := flickr.NewClient(&flickr.ClientConfig{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//
//	rsp, err := client.Call(ctx, "flickr.photos.search", flickr.Args{"tags": "kitten"})
//	for _, photo := range rsp.Child("photos").ChildrenNamed("photo") {
//	    fmt.Println(photo.Attr("id"), photo.Attr("title"))
//	}
//
// # Error Handling
//
// Execute classifies every response exactly once. Service failures come
// back as *APIError, malformed or non-200 responses as *ProtocolError, and
// network failures as the transport's own error:
//
//	_, err := client.Call(ctx, "flickr.photos.delete", args)
//	var apiErr *flickr.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == flickr.ErrCodeInsufficientPerms {
//	    // ask for delete permission
//	}
package flickr
