// Package publisher defines the validated publisher record and the parser
// that builds it from one raw tabular row.
package publisher

// ContentType classifies what a feed carries.
type ContentType string

// Supported content types.
const (
	ContentTypeArticle ContentType = "article"
	ContentTypeProduct ContentType = "product"
	ContentTypeVideo   ContentType = "video"
)

// DefaultMaxEntries caps feed entries when the row leaves it blank.
const DefaultMaxEntries = 20

// Record is one validated publisher. Records only come out of Parser.Parse;
// the enrichment fields (FaviconURL, CoverURL, BackgroundColor) start nil and
// are filled from lookup tables by the builder.
type Record struct {
	Enabled            bool        `json:"enabled"`
	PublisherName      string      `json:"publisher_name" validate:"required"`
	Category           string      `json:"category"`
	SiteURL            string      `json:"site_url" validate:"required,http_url"`
	FeedURL            string      `json:"feed_url" validate:"required,http_url"`
	FaviconURL         *string     `json:"favicon_url"`
	CoverURL           *string     `json:"cover_url"`
	BackgroundColor    *string     `json:"background_color"`
	Score              float64     `json:"score"`
	Channels           []string    `json:"channels"`
	Rank               *int        `json:"rank"`
	PublisherID        string      `json:"publisher_id" validate:"required"`
	DestinationDomains []string    `json:"destination_domains" validate:"dive,required"`
	ContentType        ContentType `json:"content_type" validate:"oneof=article product video"`
	PublisherDomain    string      `json:"publisher_domain" validate:"required"`
	MaxEntries         int         `json:"max_entries" validate:"gt=0"`
	OGImages           bool        `json:"og_images"`
	CreativeInstanceID string      `json:"creative_instance_id"`
}
