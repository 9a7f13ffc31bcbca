package publisher

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JakeFAU/publisher-directory/internal/weburl"
)

// Hasher derives the publisher id from a feed URL.
type Hasher interface {
	Hash(s string) string
}

// Parser turns raw rows into Records. It holds no per-row state and is safe
// for concurrent use.
type Parser struct {
	validate *validator.Validate
	hasher   Hasher
	scheme   string
}

// NewParser creates a Parser. Bare site domains get scheme (https when empty).
func NewParser(hasher Hasher, scheme string) *Parser {
	validate := validator.New()
	// Report columns by their header name and record fields by their JSON name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("csv"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Parser{
		validate: validate,
		hasher:   hasher,
		scheme:   scheme,
	}
}

// Parse validates raw and builds a Record. On failure it returns a
// *ValidationError and a zero Record.
func (p *Parser) Parse(raw RawRow) (Record, error) {
	in := rowInput{
		Status:             strings.ToLower(raw.cell(ColumnStatus)),
		Title:              raw.cell(ColumnTitle),
		Category:           raw.cell(ColumnCategory),
		Domain:             weburl.EnsureScheme(raw.cell(ColumnDomain), p.scheme),
		Feed:               raw.cell(ColumnFeed),
		Score:              raw.cell(ColumnScore),
		Channels:           raw.cell(ColumnChannels),
		Rank:               raw.cell(ColumnRank),
		DestinationDomains: raw.cell(ColumnDestinationDomains),
		ContentType:        strings.ToLower(raw.cell(ColumnContentType)),
		MaxEntries:         raw.cell(ColumnMaxEntries),
		OGImages:           strings.ToLower(raw.cell(ColumnOGImages)),
		CreativeInstanceID: raw.cell(ColumnCreativeInstanceID),
		OriginalFeed:       raw.cell(ColumnOriginalFeed),
	}
	if err := p.validate.Struct(in); err != nil {
		return Record{}, newValidationError(err)
	}

	rec, verr := p.convert(in)
	if verr != nil {
		return Record{}, verr
	}
	if err := p.validate.Struct(rec); err != nil {
		return Record{}, newValidationError(err)
	}
	return rec, nil
}

func (p *Parser) convert(in rowInput) (Record, *ValidationError) {
	verr := &ValidationError{Fields: map[string]string{}}

	rec := Record{
		Enabled:            in.Status == "" || truthy(in.Status),
		PublisherName:      in.Title,
		Category:           in.Category,
		SiteURL:            in.Domain,
		FeedURL:            in.Feed,
		Channels:           splitList(in.Channels, false),
		DestinationDomains: splitList(in.DestinationDomains, true),
		ContentType:        ContentTypeArticle,
		PublisherDomain:    weburl.Host(in.Domain),
		MaxEntries:         DefaultMaxEntries,
		OGImages:           truthy(in.OGImages),
		CreativeInstanceID: in.CreativeInstanceID,
	}

	if in.Score != "" {
		score, err := strconv.ParseFloat(in.Score, 64)
		if err != nil {
			verr.Fields[ColumnScore] = fmt.Sprintf("%s must be a number", ColumnScore)
		}
		rec.Score = score
	}
	if in.Rank != "" {
		rank, err := strconv.Atoi(in.Rank)
		if err != nil {
			verr.Fields[ColumnRank] = fmt.Sprintf("%s must be an integer", ColumnRank)
		} else {
			rec.Rank = &rank
		}
	}
	if in.MaxEntries != "" {
		maxEntries, err := strconv.Atoi(in.MaxEntries)
		if err != nil {
			verr.Fields[ColumnMaxEntries] = fmt.Sprintf("%s must be an integer", ColumnMaxEntries)
		}
		rec.MaxEntries = maxEntries
	}
	if in.ContentType != "" {
		rec.ContentType = ContentType(in.ContentType)
	}

	idSource := in.Feed
	if in.OriginalFeed != "" {
		idSource = in.OriginalFeed
	}
	rec.PublisherID = p.hasher.Hash(idSource)

	if len(verr.Fields) > 0 {
		return Record{}, verr
	}
	return rec, nil
}
