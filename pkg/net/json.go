package net

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON retrieves the HTTP content and decodes it into the passed target.
func GetJSON[T any](ctx context.Context, c *Client, url string, target *T) error {
	b, err := c.GetBody(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}
