// Package extract evaluates caller-supplied CSS selectors against fetched
// pages and derives page metadata (title, description, headings, keywords).
package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// Service runs the extraction engine.
type Service struct {
	policy       *SelectorPolicy
	keywordCount int
	logger       arbor.ILogger
}

// NewService creates a new extraction service.
func NewService(cfg *common.Config, logger arbor.ILogger) *Service {
	allowed := cfg.Extract.AllowedCSSProperties
	if len(allowed) == 0 {
		allowed = common.DefaultAllowedCSSProperties
	}
	keywordCount := cfg.Extract.KeywordCount
	if keywordCount <= 0 {
		keywordCount = 10
	}
	return &Service{
		policy:       NewSelectorPolicy(allowed),
		keywordCount: keywordCount,
		logger:       logger,
	}
}

// Extract evaluates each named selector against the document and returns
// the surviving fields. Unsafe selectors and selectors that fail to parse
// are skipped; fields whose selectors match nothing are omitted entirely.
// Per-element type conversion failures yield nil in that element's slot.
func (s *Service) Extract(doc *goquery.Document, selectors map[string]models.SelectorSpec) models.ExtractionResult {
	if doc == nil || len(selectors) == 0 {
		return models.ExtractionResult{}
	}

	result := models.ExtractionResult{}
	for name, spec := range selectors {
		if !s.policy.IsSafe(spec.Selector) {
			s.logger.Warn().
				Str("field", name).
				Str("selector", spec.Selector).
				Msg("Unsafe CSS selector skipped")
			continue
		}

		matcher, err := cascadia.Compile(spec.Selector)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("field", name).
				Str("selector", spec.Selector).
				Msg("CSS selector failed to parse")
			continue
		}

		var values []string
		doc.FindMatcher(matcher).Each(func(_ int, sel *goquery.Selection) {
			values = append(values, strings.TrimSpace(sel.Text()))
		})
		if len(values) == 0 {
			s.logger.Debug().
				Str("field", name).
				Str("selector", spec.Selector).
				Msg("Selector matched no elements")
			continue
		}

		for _, cleanup := range spec.Cleanup {
			if cleanup == "lower" {
				for i := range values {
					values[i] = strings.ToLower(values[i])
				}
			}
		}

		result[name] = s.convert(name, values, spec.Type)
	}
	return result
}

// convert applies the spec's type to each value. A value that cannot be
// converted becomes nil rather than aborting the field; an unrecognized
// type keeps the raw strings.
func (s *Service) convert(field string, values []string, dataType string) []any {
	converted := make([]any, 0, len(values))
	for _, value := range values {
		switch dataType {
		case "", "string":
			converted = append(converted, value)
		case "integer":
			n, err := strconv.Atoi(value)
			if err != nil {
				s.logger.Warn().
					Str("field", field).
					Str("value", value).
					Msg("Integer conversion failed")
				converted = append(converted, nil)
				continue
			}
			converted = append(converted, n)
		case "float":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				s.logger.Warn().
					Str("field", field).
					Str("value", value).
					Msg("Float conversion failed")
				converted = append(converted, nil)
				continue
			}
			converted = append(converted, f)
		default:
			s.logger.Warn().
				Str("field", field).
				Str("type", dataType).
				Msg("Unknown data type, keeping raw value")
			converted = append(converted, value)
		}
	}
	return converted
}
