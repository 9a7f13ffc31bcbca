package publisher

import "strings"

// Column headers of the publisher sources file.
const (
	ColumnStatus             = "Status"
	ColumnTitle              = "Title"
	ColumnCategory           = "Category"
	ColumnDomain             = "Domain"
	ColumnFeed               = "Feed"
	ColumnScore              = "Score"
	ColumnChannels           = "Channels"
	ColumnRank               = "Rank"
	ColumnDestinationDomains = "Destination Domains"
	ColumnContentType        = "Content Type"
	ColumnMaxEntries         = "Max Entries"
	ColumnOGImages           = "OG Images"
	ColumnCreativeInstanceID = "Creative Instance ID"
	ColumnOriginalFeed       = "Original Feed"
)

// listSeparator splits multi-valued cells such as Channels.
const listSeparator = ";"

// RawRow is one untrusted input row keyed by column header.
type RawRow map[string]string

// rowInput holds trimmed cell text and the format checks applied before any
// conversion. Lowercased where the accepted values are case-insensitive.
type rowInput struct {
	Status             string `csv:"Status" validate:"omitempty,oneof=enabled disabled true false yes no 1 0"`
	Title              string `csv:"Title" validate:"required"`
	Category           string `csv:"Category"`
	Domain             string `csv:"Domain" validate:"required,http_url"`
	Feed               string `csv:"Feed" validate:"required,http_url"`
	Score              string `csv:"Score" validate:"omitempty,numeric"`
	Channels           string `csv:"Channels"`
	Rank               string `csv:"Rank" validate:"omitempty,number"`
	DestinationDomains string `csv:"Destination Domains"`
	ContentType        string `csv:"Content Type" validate:"omitempty,oneof=article product video"`
	MaxEntries         string `csv:"Max Entries" validate:"omitempty,number"`
	OGImages           string `csv:"OG Images" validate:"omitempty,oneof=on off true false yes no 1 0"`
	CreativeInstanceID string `csv:"Creative Instance ID"`
	OriginalFeed       string `csv:"Original Feed" validate:"omitempty,http_url"`
}

func (r RawRow) cell(column string) string {
	return strings.TrimSpace(r[column])
}

func splitList(raw string, dedupe bool) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, listSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dedupe {
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
		}
		out = append(out, part)
	}
	return out
}

func truthy(v string) bool {
	switch v {
	case "enabled", "on", "true", "yes", "1":
		return true
	default:
		return false
	}
}
