package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

const nextDataScriptID = "__NEXT_DATA__"

var (
	// ErrInvalidInput is returned for input that is neither an ID nor a handle.
	ErrInvalidInput = errors.New("invalid creator handle or id")

	idPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{20,64}$`)
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{1,30}$`)

	idPathSegments = map[string]bool{"user": true, "users": true, "profile": true, "creator": true}
)

// IsCreatorID reports whether s already looks like a creator ID.
func IsCreatorID(s string) bool {
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	return idPattern.MatchString(s) && strings.ContainsAny(s, "0123456789")
}

// ParseInput classifies a raw handle, @handle, ID or profile URL. Exactly
// one of id or handle is set on success.
func ParseInput(input string) (id, handle string, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", "", ErrInvalidInput
	}

	if strings.Contains(s, "://") || strings.Contains(s, "/") {
		return parseProfileURL(s)
	}

	if strings.HasPrefix(s, "@") {
		h := strings.TrimPrefix(s, "@")
		if !handlePattern.MatchString(h) {
			return "", "", ErrInvalidInput
		}
		return "", h, nil
	}

	if IsCreatorID(s) {
		return s, "", nil
	}
	if handlePattern.MatchString(s) {
		return "", s, nil
	}
	return "", "", ErrInvalidInput
}

func parseProfileURL(s string) (string, string, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", "", ErrInvalidInput
	}

	segs := make([]string, 0)
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			segs = append(segs, p)
		}
	}

	for i, seg := range segs {
		if strings.HasPrefix(seg, "@") {
			return ParseInput(seg)
		}
		if idPathSegments[strings.ToLower(seg)] && i+1 < len(segs) {
			next := segs[i+1]
			if IsCreatorID(next) {
				return next, "", nil
			}
			if handlePattern.MatchString(next) {
				return "", next, nil
			}
		}
	}
	return "", "", ErrInvalidInput
}

// Resolve maps input to a creator ID. IDs pass through; handles are looked
// up on the creator's public profile page.
func (c *Client) Resolve(ctx context.Context, input string) (string, error) {
	id, handle, err := ParseInput(input)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	page := c.webURL + "/@" + url.PathEscape(handle)
	b, err := c.getPage(ctx, page)
	if err != nil {
		return "", err
	}

	found, err := ExtractCreatorID(b)
	if err != nil {
		return "", fmt.Errorf("error resolving @%s: %w", handle, err)
	}
	return found, nil
}

func (c *Client) getPage(ctx context.Context, u string) ([]byte, error) {
	b, err := c.net.GetBody(ctx, u, "text/html")
	if err != nil {
		return nil, mapNotFound(err)
	}
	return b, nil
}

// ExtractCreatorID reads the creator ID from a profile page, preferring the
// embedded page data over meta tags.
func ExtractCreatorID(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("error parsing profile page: %w", err)
	}

	var nextData, metaID, ogURL string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if attr(n, "id") == nextDataScriptID && n.FirstChild != nil {
					nextData = n.FirstChild.Data
				}
			case "meta":
				switch {
				case attr(n, "name") == "creator-id":
					metaID = attr(n, "content")
				case attr(n, "property") == "og:url":
					ogURL = attr(n, "content")
				}
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)

	if id := idFromNextData(nextData); id != "" {
		return id, nil
	}
	if IsCreatorID(metaID) {
		return metaID, nil
	}
	if ogURL != "" {
		if id, _, err := parseProfileURL(ogURL); err == nil && id != "" {
			return id, nil
		}
	}
	return "", ErrNotFound
}

func idFromNextData(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	var doc struct {
		Props struct {
			PageProps map[string]json.RawMessage `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return ""
	}

	for _, key := range []string{"user", "profile", "creator"} {
		raw, ok := doc.Props.PageProps[key]
		if !ok {
			continue
		}
		var v struct {
			ID     string `json:"id"`
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		for _, id := range []string{v.UserID, v.ID} {
			if IsCreatorID(id) {
				return id
			}
		}
	}

	if raw, ok := doc.Props.PageProps["userId"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && IsCreatorID(id) {
			return id
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
