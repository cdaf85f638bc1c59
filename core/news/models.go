package news

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/core"
)

const (
	TargetAll   = "all"
	TargetGroup = "group"

	defaultTitle  = "Neue Mitteilung"
	titleMaxLen   = 50
	previewMaxLen = 100
)

var (
	h2Regex    = regexp.MustCompile(`(?i)<h2[^>]*>(.*?)</h2>`)
	pRegex     = regexp.MustCompile(`(?i)<p[^>]*>(.*?)</p>`)
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url" validate:"required"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type News struct {
	ID          string       `json:"id"`
	FacilityID  string       `json:"facility_id"`
	Title       string       `json:"title"`
	Text        string       `json:"text"` // HTML
	GroupID     *string      `json:"group_id"`
	Target      string       `json:"target"`
	Attachments []Attachment `json:"attachments"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// InGroup reports whether the news is addressed to a single group.
func (n News) InGroup() bool { return n.GroupID != nil && *n.GroupID != "" }

// PushTitle is the explicit title, else the first heading, else the first paragraph of the text.
func (n News) PushTitle() string {
	if n.Title != "" {
		return n.Title
	}
	if title := ExtractTitle(n.Text); title != "" {
		return title
	}
	return defaultTitle
}

// ExtractTitle returns the text of the first <h2>, else the first <p> cut after 50 characters.
func ExtractTitle(html string) string {
	if m := h2Regex.FindStringSubmatch(html); m != nil {
		return strings.TrimSpace(tagRegex.ReplaceAllString(m[1], ""))
	}
	if m := pRegex.FindStringSubmatch(html); m != nil {
		text := strings.TrimSpace(tagRegex.ReplaceAllString(m[1], ""))
		return core.Truncate(text, titleMaxLen)
	}
	return ""
}

// ExtractPreview strips the tags of html and cuts the plain text after max characters.
func ExtractPreview(html string, max int) string {
	text := tagRegex.ReplaceAllString(html, " ")
	text = strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
	return core.Truncate(text, max)
}

// NewNews contains information needed to publish News.
// A missing target is derived from the group.
type NewNews struct {
	Title       string       `json:"title"`
	Text        string       `json:"text" validate:"required"`
	GroupID     string       `json:"group_id" validate:"required_if=Target group"`
	Target      string       `json:"target" validate:"omitempty,oneof=all group"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
}

func (nn *NewNews) Validate(_ context.Context, validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.GroupID = core.CleanString(nn.GroupID)
	nn.Target = core.CleanString(nn.Target, true /* lower */)
	if nn.GroupID == "all" {
		nn.GroupID = ""
	}
	if nn.Target == "" {
		nn.Target = TargetAll
		if nn.GroupID != "" {
			nn.Target = TargetGroup
		}
	}
	if nn.Target == TargetAll {
		nn.GroupID = ""
	}
	if err := validate.Struct(nn); err != nil {
		return err
	}
	if strings.TrimSpace(tagRegex.ReplaceAllString(nn.Text, "")) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "text", Error: "this field is required"})
	}
	return nil
}

type FeedFilter struct {
	GroupID string `query:"group"`
}
