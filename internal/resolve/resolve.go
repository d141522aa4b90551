// Package resolve locates the current document URL for a document kind on an
// unversioned listing page. Listing pages restructure without notice, so
// resolution layers cheap-to-expensive heuristics instead of per-site code.
package resolve

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// ErrNotFound means no candidate document URL could be located on the page.
var ErrNotFound = errors.New("source url not found")

// windowSize bounds the text searched after a keyword occurrence (step 3).
const windowSize = 20000

var pdfURLPattern = regexp.MustCompile(`(?i)(https?://[^\s"'>]+\.pdf|/[^\s"'>]+\.pdf)`)

// Resolve finds the best-matching document URL for a keyword (e.g. "averages",
// "schedule", "standings"). Resolution order, first match wins:
//
//  1. explicit override URL from configuration
//  2. anchors whose link text contains the keyword and whose href ends in .pdf
//  3. a bounded window of page text after the first keyword occurrence,
//     preferring a PDF URL that itself contains the keyword
//  4. any PDF anchor filtered by keyword label, else the first PDF anchor
//
// Relative hrefs are joined against baseURL.
func Resolve(listingHTML, baseURL, keyword, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if listingHTML == "" {
		return "", ErrNotFound
	}

	anchors := pdfAnchors(listingHTML, baseURL)

	if u := anchorByLabel(anchors, keyword); u != "" {
		return u, nil
	}
	if u := windowedSearch(listingHTML, baseURL, keyword); u != "" {
		return u, nil
	}
	if len(anchors) > 0 {
		log.Debug().
			Str("keyword", keyword).
			Int("candidates", len(anchors)).
			Msg("No labeled or windowed match, falling back to first PDF link")
		return anchors[0].href, nil
	}

	return "", ErrNotFound
}

type anchor struct {
	href  string
	label string
}

func pdfAnchors(listingHTML, baseURL string) []anchor {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingHTML))
	if err != nil {
		return nil
	}

	var anchors []anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(href)), ".pdf") {
			return
		}
		anchors = append(anchors, anchor{
			href:  join(baseURL, href),
			label: strings.ToLower(s.Text()),
		})
	})
	return anchors
}

func anchorByLabel(anchors []anchor, keyword string) string {
	keyword = strings.ToLower(keyword)
	for _, a := range anchors {
		if strings.Contains(a.label, keyword) {
			return a.href
		}
	}
	return ""
}

func windowedSearch(listingHTML, baseURL, keyword string) string {
	idx := strings.Index(strings.ToLower(listingHTML), strings.ToLower(keyword))
	if idx < 0 {
		return ""
	}
	end := idx + windowSize
	if end > len(listingHTML) {
		end = len(listingHTML)
	}

	candidates := pdfURLPattern.FindAllString(listingHTML[idx:end], -1)
	if len(candidates) == 0 {
		return ""
	}
	for _, u := range candidates {
		if strings.Contains(strings.ToLower(u), strings.ToLower(keyword)) {
			return join(baseURL, u)
		}
	}
	return join(baseURL, candidates[0])
}

func join(baseURL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" {
		return href
	}
	return base.ResolveReference(ref).String()
}
