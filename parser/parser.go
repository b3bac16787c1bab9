// Package parser implements component C2: per-field value extraction from
// a submission JSON document. Dynamic dispatch over parser types is
// replaced with the tagged-variant enum the spec's redesign guidance asks
// for (spec §9): Kind names a case, Parser.Parse is the single dispatch
// point, and each case is a small function rather than a type hierarchy.
package parser

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/registry"
)

// Kind identifies one parser implementation. The registry validates that
// every FieldDescriptor.Parser names a Kind a running binary actually
// registers (see Known).
type Kind string

const (
	KindSimpleAttribute Kind = "simple-attribute"
	KindJPathList       Kind = "jpath-list"
	KindDate            Kind = "date"
	KindYear            Kind = "year"
	KindContent         Kind = "content"
	KindFileType        Kind = "file-type"
	KindViewCount       Kind = "view-count"
	KindAccess          Kind = "access"
	KindReleaseDate     Kind = "release-date"
	KindReleaseYear     Kind = "release-year"
	KindModificationYear Kind = "modification-year"
	KindEUToxRiskDataType Kind = "eutox-risk-data-type"
	KindNodeCounting    Kind = "node-counting"
	KindType            Kind = "type"
)

// Known returns every Kind this package can dispatch, for use as the
// registry's knownParsers validation set.
func Known() []string {
	return []string{
		string(KindSimpleAttribute), string(KindJPathList), string(KindDate),
		string(KindYear), string(KindContent), string(KindFileType),
		string(KindViewCount), string(KindAccess), string(KindReleaseDate),
		string(KindReleaseYear), string(KindModificationYear),
		string(KindEUToxRiskDataType), string(KindNodeCounting), string(KindType),
	}
}

// Context carries the per-call collaborators a parser may need beyond the
// submission document itself: a view-count lookup (spec §6 view-count
// file) for the ViewCount kind. It is safe to leave ViewCounts nil when a
// registry never declares a view-count field.
type Context struct {
	ViewCounts ViewCountLookup
}

// ViewCountLookup resolves an accession to its recorded view count. The
// view-count CSV itself is an external collaborator (spec §6); this is
// just the seam the parser calls through.
type ViewCountLookup interface {
	ViewCount(accession string) (int64, bool)
}

// regexCache memoizes compiled extractor patterns; an invalid pattern is
// an ErrInvalidConfig surfaced on first use, per spec §4.2.
var regexCache sync.Map // string -> *regexp.Regexp

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errs.NewConfigError("regex "+pattern, err)
	}
	if re.NumSubexp() != 1 {
		return nil, errs.NewConfigError("regex "+pattern, fmt.Errorf("expected exactly one capture group, got %d", re.NumSubexp()))
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// Parse runs the parser named by d.Parser over doc and returns its raw
// value. A false second return means "none" (spec's parse(...) -> none).
// accession is the owning submission's accession, needed by a handful of
// kinds (ViewCount) that look up external per-submission state.
func Parse(doc map[string]any, d registry.FieldDescriptor, accession string, ctx Context) (string, bool, error) {
	switch Kind(d.Parser) {
	case KindSimpleAttribute:
		return parseSimpleAttribute(doc, d)
	case KindJPathList:
		return parseJPathList(doc, d)
	case KindDate:
		return parseDate(doc, d)
	case KindYear:
		return parseYear(doc, d)
	case KindContent:
		return parseContent(doc, d)
	case KindFileType:
		return parseFileType(doc, d)
	case KindViewCount:
		return parseViewCount(accession, ctx)
	case KindAccess:
		return parseAccess(doc)
	case KindReleaseDate:
		return parseReleaseDate(doc)
	case KindReleaseYear:
		return parseReleaseYearField(doc, "releaseTime")
	case KindModificationYear:
		return parseReleaseYearField(doc, "modificationTime")
	case KindEUToxRiskDataType:
		return parseEUToxRiskDataType(doc)
	case KindNodeCounting:
		return parseNodeCounting(doc, d)
	case KindType:
		return parseType(doc, d)
	default:
		return "", false, errs.NewConfigError(d.Name, fmt.Errorf("unknown parser kind %q", d.Parser))
	}
}
