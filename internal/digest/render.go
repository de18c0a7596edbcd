package digest

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"newsletter/internal/domain"
)

// Greeting is the generic salutation every rendered digest starts with.
const Greeting = "Hello Good People!"

const (
	longDateLayout   = "Monday, January 2, 2006"
	bylineDateLayout = "Jan 2, 2006"
	trackingPath     = "/email-tracking"
)

//go:embed template.html
var templateHTML string

var digestTemplate = template.Must(template.New("digest").Parse(templateHTML))

// RendererConfig holds the branding and link settings used in the digest.
type RendererConfig struct {
	Brand        string
	BaseURL      string
	SiteURL      string
	ContactEmail string
}

type Renderer struct {
	cfg RendererConfig
	now func() time.Time
}

func NewRenderer(cfg RendererConfig) *Renderer {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Renderer{cfg: cfg, now: time.Now}
}

type pageView struct {
	Brand        string
	Greeting     string
	Date         string
	Categories   []categoryView
	SiteURL      string
	ContactEmail string
	Year         int
	PixelURL     string
}

type categoryView struct {
	Name     string
	Articles []articleView
}

type articleView struct {
	Title       string
	Href        string
	Description string
	Source      string
	Date        string
}

// Render produces the digest HTML. A non-empty logID turns every article link into a
// click-tracking redirect and adds an open-tracking pixel before the closing body tag.
func (r *Renderer) Render(articles []domain.Article, logID string) (string, error) {
	now := r.now()

	view := pageView{
		Brand:        r.cfg.Brand,
		Greeting:     Greeting,
		Date:         now.Format(longDateLayout),
		SiteURL:      r.cfg.SiteURL,
		ContactEmail: r.cfg.ContactEmail,
		Year:         now.Year(),
	}
	if logID != "" {
		view.PixelURL = r.OpenURL(logID)
	}

	for _, group := range GroupByCategory(articles) {
		cv := categoryView{Name: group.Name}
		for _, a := range group.Articles {
			href := a.Link
			if logID != "" {
				href = r.ClickURL(logID, a.Link)
			}
			cv.Articles = append(cv.Articles, articleView{
				Title:       a.Title,
				Href:        href,
				Description: a.Description,
				Source:      a.Source,
				Date:        a.PublishedAt.Format(bylineDateLayout),
			})
		}
		view.Categories = append(view.Categories, cv)
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

func (r *Renderer) ClickURL(logID, link string) string {
	return fmt.Sprintf("%s%s?type=click&logId=%s&url=%s",
		r.cfg.BaseURL, trackingPath, url.QueryEscape(logID), url.QueryEscape(link))
}

func (r *Renderer) OpenURL(logID string) string {
	return fmt.Sprintf("%s%s?type=open&logId=%s", r.cfg.BaseURL, trackingPath, url.QueryEscape(logID))
}

// Subject is the mail subject for a digest sent at t.
func Subject(brand string, t time.Time) string {
	return fmt.Sprintf("%s Weekly Digest - %s", brand, t.Format(longDateLayout))
}
