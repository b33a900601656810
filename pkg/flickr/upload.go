package flickr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"
)

// Upload sends a photo to the upload endpoint and returns the new photo ID.
// args may carry title, description, tags, is_public and the other upload
// fields; they are signed, the photo itself is not.
func (c *Client) Upload(ctx context.Context, filename string, photo io.Reader, args Args) (string, error) {
	rsp, err := c.upload(ctx, c.config.UploadURL, "upload", filename, photo, args)
	if err != nil {
		return "", err
	}
	return rsp.TextOf("photoid"), nil
}

// Replace swaps the image of an existing photo
func (c *Client) Replace(ctx context.Context, filename string, photo io.Reader, photoID string, args Args) (string, error) {
	final := args.Clone()
	final["photo_id"] = photoID
	rsp, err := c.upload(ctx, c.config.ReplaceURL, "replace", filename, photo, final)
	if err != nil {
		return "", err
	}
	if id := rsp.TextOf("photoid"); id != "" {
		return id, nil
	}
	return photoID, nil
}

func (c *Client) upload(ctx context.Context, endpoint, method, filename string, photo io.Reader, args Args) (*Node, error) {
	if !c.Credentials().CanSign() {
		return nil, ErrNoSecret
	}

	fields := c.withToken(args).Clone()
	fields["api_key"] = c.config.APIKey
	delete(fields, "api_sig")
	fields["api_sig"] = Sign(c.config.APISecret, fields)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, k := range fields.sortedKeys() {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("photo", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	status, body, err := c.send(req)
	if err != nil {
		return nil, err
	}
	resp := Interpret(status, body)
	c.observe(ctx, method, resp, false, start)
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
