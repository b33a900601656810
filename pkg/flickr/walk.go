package flickr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

const defaultPerPage = 50

// Walk calls a paginated method page by page and invokes fn for every
// element of the first child of each response (for example every <photo>
// inside <photos>). Iteration stops after the last page, on the first error,
// or when fn returns ErrStopWalk, which Walk does not report.
func (c *Client) Walk(ctx context.Context, method string, args Args, perPage int, fn func(*Node) error) error {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	for page := 1; ; page++ {
		pageArgs := args.Clone()
		pageArgs["per_page"] = strconv.Itoa(perPage)
		pageArgs["page"] = strconv.Itoa(page)

		rsp, err := c.Call(ctx, method, pageArgs)
		if err != nil {
			return fmt.Errorf("%s page %d: %w", method, page, err)
		}
		list := rsp.FirstChild()
		if list == nil {
			return nil
		}
		for _, item := range list.Children {
			if err := fn(item); err != nil {
				if errors.Is(err, ErrStopWalk) {
					return nil
				}
				return err
			}
		}

		pages, err := strconv.Atoi(list.Attr("pages"))
		if err != nil || page >= pages || len(list.Children) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// WalkSet walks every photo of a photoset
func (c *Client) WalkSet(ctx context.Context, photosetID string, perPage int, fn func(*Node) error) error {
	return c.Walk(ctx, "flickr.photosets.getPhotos", Args{"photoset_id": photosetID}, perPage, fn)
}
