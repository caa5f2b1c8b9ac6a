package domain

import "strings"

// Kind distinguishes the two raw item shapes coming from the item source.
type Kind string

// Item kinds.
const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Item is one raw unit of fetched content (a post, a comment, or an app
// review mapped onto the post shape). Items are read-only for every filter
// stage: gates partition them into new slices, they never mutate in place.
type Item struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body"`
	Author     string `json:"author"`
	Community  string `json:"community"`
	Score      int    `json:"score"`
	CreatedUTC int64  `json:"created_utc"`
	Permalink  string `json:"permalink"`
	URL        string `json:"url,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	PostID     string `json:"post_id,omitempty"`
}

// Moderation sentinels left in place of a removed body. Matched trimmed and
// case-insensitively.
var removedSentinels = []string{"[removed]", "[deleted]", "[unavailable]"}

// IsRemoved reports whether the body is a moderation sentinel.
func (i Item) IsRemoved() bool {
	body := strings.ToLower(strings.TrimSpace(i.Body))
	for _, s := range removedSentinels {
		if body == s {
			return true
		}
	}
	return false
}

// Text returns the text a filter stage should judge: title plus body for
// posts, body alone for comments. A missing body counts as empty, never nil.
func (i Item) Text() string {
	if i.Kind == KindComment {
		return i.Body
	}
	if i.Title == "" {
		return i.Body
	}
	if i.Body == "" {
		return i.Title
	}
	return i.Title + "\n" + i.Body
}

// TextLength is the admissibility length of the item (title+body for posts,
// body for comments).
func (i Item) TextLength() int {
	if i.Kind == KindComment {
		return len([]rune(i.Body))
	}
	return len([]rune(i.Title)) + len([]rune(i.Body))
}

// IsTitleOnly reports a post that carries a title but no body text.
func (i Item) IsTitleOnly() bool {
	return i.Kind == KindPost && strings.TrimSpace(i.Body) == "" && strings.TrimSpace(i.Title) != ""
}
