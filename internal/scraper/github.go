package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/shirinalapati/Internship-App/internal/model"
)

const (
	githubSourceName = "github_internships"
	httpTimeout      = 20 * time.Second
	defaultMaxRows   = 1000

	// The raw README is served as markdown, but the listings themselves
	// are literal HTML tables embedded in it, so goquery can parse the
	// body directly.
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Simplify short-links redirect through their tracker; prefer the
	// employer's direct link when the cell carries both.
	simplifyLinkPrefix = "https://simplify.jobs/p/"

	// Continuation rows repeat the previous employer as an arrow.
	continuationMark = "↳"
)

// dateColumnKeywords match the header of the posting-date column, which the
// board has renamed more than once ("Date Posted", "Added", currently "Age").
var dateColumnKeywords = []string{"date posted", "posted", "date added", "added", "date", "age", "days"}

// GitHubSource scrapes a community-maintained internships README.
type GitHubSource struct {
	URL        string
	MaxResults int
	client     *http.Client
}

// NewGitHubSource constructs a source with a shared HTTP client. maxResults
// caps how many rows one fetch will keep; zero or negative selects the
// default cap.
func NewGitHubSource(url string, maxResults int) *GitHubSource {
	if maxResults <= 0 {
		maxResults = defaultMaxRows
	}
	return &GitHubSource{
		URL:        url,
		MaxResults: maxResults,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Name implements Source.
func (s *GitHubSource) Name() string { return githubSourceName }

// Fetch implements Source: one GET of the document, then a parse of its
// first listings table.
func (s *GitHubSource) Fetch(ctx context.Context) ([]model.RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	listings := s.parseListings(doc, time.Now())
	log.Printf("[github] parsed %d listings from %s", len(listings), s.URL)
	return listings, nil
}

// parseListings walks the first table in the document. The board publishes
// the software-engineering table first; category tables further down are
// out of scope.
func (s *GitHubSource) parseListings(doc *goquery.Document, now time.Time) []model.RawListing {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		log.Println("[github] no tables found in document")
		return nil
	}

	rows := table.Find("tr")
	dateCol := dateColumnIndex(rows.First())

	var (
		listings     []model.RawListing
		lastEmployer string
	)
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		if len(listings) >= s.MaxResults {
			return false
		}

		cells := row.Find("td")
		if cells.Length() < 4 {
			return true
		}

		employer := employerFrom(cells.Eq(0))
		if strings.HasPrefix(employer, continuationMark) {
			employer = lastEmployer
		}
		role := strings.TrimSpace(cells.Eq(1).Text())
		location := strings.TrimSpace(cells.Eq(2).Text())
		if employer == "" || role == "" {
			return true
		}
		lastEmployer = employer

		posting := model.PostingMetadata{
			JobType:      JobType(role),
			LocationType: LocationType(location),
			Sponsorship:  Sponsorship(role),
		}
		if dateCol >= 0 && cells.Length() > dateCol {
			if rawDate := strings.TrimSpace(cells.Eq(dateCol).Text()); rawDate != "" {
				posting.DatePostedRaw = &rawDate
				if days, ok := DaysSincePosted(rawDate, now); ok {
					posting.DaysSincePosted = &days
				}
			}
		}

		listings = append(listings, model.RawListing{
			Employer:          employer,
			RoleTitle:         role,
			Location:          location,
			ApplyLink:         applyLinkFrom(cells.Eq(3)),
			Description:       fmt.Sprintf("%s at %s. Location: %s.", role, employer, location),
			Skills:            SkillsFromTitle(role),
			ExtraRequirements: posting.Sponsorship,
			SourceName:        githubSourceName,
			Posting:           posting,
		})
		return true
	})

	return listings
}

// dateColumnIndex scans the header row for the posting-date column. It
// returns -1 when no header matches, in which case rows are kept without
// date metadata.
func dateColumnIndex(header *goquery.Selection) int {
	idx := -1
	header.Find("th, td").EachWithBreak(func(i int, cell *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(cell.Text()))
		for _, kw := range dateColumnKeywords {
			if strings.Contains(text, kw) {
				idx = i
				return false
			}
		}
		return true
	})
	return idx
}

// employerFrom prefers the linked employer name, falling back to the raw
// cell text for unlinked rows and continuation arrows.
func employerFrom(cell *goquery.Selection) string {
	if link := cell.Find("a").First(); link.Length() > 0 {
		if name := strings.TrimSpace(link.Text()); name != "" {
			return name
		}
	}
	return strings.TrimSpace(cell.Text())
}

// applyLinkFrom picks the first direct application link in the cell,
// skipping Simplify short-links unless nothing else is there. "#" marks a
// row that listed no link at all.
func applyLinkFrom(cell *goquery.Selection) string {
	var direct, first string
	cell.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		if first == "" {
			first = href
		}
		if direct == "" && !strings.HasPrefix(href, simplifyLinkPrefix) {
			direct = href
		}
	})
	switch {
	case direct != "":
		return direct
	case first != "":
		return first
	default:
		return "#"
	}
}
