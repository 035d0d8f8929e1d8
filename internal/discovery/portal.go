package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/zhada/appraisal-extractor/constants"
	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/entity"
)

// sessionState tracks where the portal session is in its lifecycle. The
// session is effectively single-threaded: navigation calls are serialized
// behind a mutex while document downloads of already-located files may run
// in parallel.
type sessionState int

const (
	stateLoggedOut sessionState = iota
	stateLoggedIn
	stateNavigating
	stateListingReady
)

func (s sessionState) String() string {
	switch s {
	case stateLoggedOut:
		return "logged_out"
	case stateLoggedIn:
		return "logged_in"
	case stateNavigating:
		return "navigating"
	case stateListingReady:
		return "listing_ready"
	}
	return "unknown"
}

// Config for the portal client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Headless bool // identify as the batch tool instead of a browser
	Timeout  time.Duration
}

// browserUA is presented when the session is not headless; some portal
// deployments reject tool user agents on the login form.
const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// PortalClient implements Discoverer against the loan portal's web interface.
type PortalClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	ua     string

	mu    sync.Mutex // serializes login + navigation
	state sessionState
}

func NewPortalClient(cfg Config, logger *slog.Logger) (*PortalClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("portal base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	ua := "appraisal-extractor/1.0"
	if !cfg.Headless {
		ua = browserUA
	}
	return &PortalClient{
		cfg:    cfg,
		http:   &http.Client{Jar: jar, Timeout: cfg.Timeout},
		logger: logger,
		ua:     ua,
		state:  stateLoggedOut,
	}, nil
}

// login authenticates the session. Caller holds p.mu.
func (p *PortalClient) login(ctx context.Context) error {
	form := url.Values{
		"employeeId": {p.cfg.Username},
		"password":   {p.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/TeamMemberLogin", strings.NewReader(form.Encode()))
	if err != nil {
		return common.Permanent("portal.login", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.ua)

	resp, err := p.http.Do(req)
	if err != nil {
		return common.Transient("portal.login", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return common.Permanent("portal.login", fmt.Errorf("authentication rejected: %d", resp.StatusCode))
	}
	if resp.StatusCode/100 != 2 {
		return common.Transient("portal.login", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	}
	p.state = stateLoggedIn
	p.logger.Info("portal.login.ok", "state", p.state.String())
	return nil
}

// navigate loads the pipeline listing with the post-funding filter applied.
// Caller holds p.mu. Returns the listing HTML.
func (p *PortalClient) navigate(ctx context.Context) ([]byte, error) {
	p.state = stateNavigating
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/MyPipeline.aspx?stage=post-funding", nil)
	if err != nil {
		return nil, common.Permanent("portal.navigate", err)
	}
	req.Header.Set("User-Agent", p.ua)
	resp, err := p.http.Do(req)
	if err != nil {
		p.state = stateLoggedIn
		return nil, common.Transient("portal.navigate", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		p.state = stateLoggedIn
		return nil, common.Transient("portal.navigate", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.state = stateLoggedIn
		return nil, common.Transient("portal.navigate", err)
	}
	p.state = stateListingReady
	p.logger.Debug("portal.navigate.ok", "bytes", len(body))
	return body, nil
}

// ListCandidates walks the pipeline listing and returns appraisal documents.
func (p *PortalClient) ListCandidates(ctx context.Context) ([]entity.WorkItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateLoggedOut {
		if err := p.login(ctx); err != nil {
			return nil, err
		}
	}
	html, err := p.navigate(ctx)
	if err != nil {
		return nil, err
	}
	items, err := ParseListing(html, time.Now().UTC())
	if err != nil {
		return nil, common.Permanent("portal.list", err)
	}
	p.logger.Info("portal.list.ok", "candidates", len(items))
	return items, nil
}

// FetchBytes downloads a located document. Does not touch session navigation
// state, so concurrent fetches are fine once listing is done.
func (p *PortalClient) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	u := locator
	if strings.HasPrefix(u, "/") {
		u = p.cfg.BaseURL + u
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, common.Permanent("portal.fetch", err)
	}
	req.Header.Set("User-Agent", p.ua)
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, common.Transient("portal.fetch", fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, common.Permanent("portal.fetch", fmt.Errorf("%w: %s", ErrNotFound, locator))
	case resp.StatusCode/100 != 2:
		return nil, common.Transient("portal.fetch", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.Transient("portal.fetch", err)
	}
	return data, nil
}

// ParseListing extracts appraisal work items from pipeline listing HTML.
// Split out of the client so listing markup can be tested without a session.
func ParseListing(html []byte, discoveredAt time.Time) ([]entity.WorkItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var items []entity.WorkItem
	doc.Find("tr.need").Each(func(_ int, row *goquery.Selection) {
		if !appraisalRow(row.Text()) {
			return
		}
		key := strings.TrimSpace(row.Find(`a[id*="btnloanIdclick"]`).First().Text())
		if key == "" {
			return
		}
		row.Find(`a.doc-link`).Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok || href == "" {
				return
			}
			name := strings.TrimSpace(link.Text())
			if name == "" {
				name = "appraisal.pdf"
			}
			if ext := constants.NormalizeExt(path.Ext(name)); ext != "" {
				if _, ok := constants.AllowedExtensions[ext]; !ok {
					return
				}
			}
			items = append(items, entity.WorkItem{
				Key:           key,
				Filename:      name,
				SourceLocator: href,
				DiscoveredAt:  discoveredAt,
			})
		})
	})
	return items, nil
}

// appraisalRow applies the listing filters: construction appraisal sections,
// or appraisal rows mentioning a value type.
func appraisalRow(text string) bool {
	hasConstruction := strings.Contains(text, "Construction - Ground Up Sale") ||
		strings.Contains(text, "Construction")
	hasAppraisal := strings.Contains(text, "Appraisal Report") ||
		strings.Contains(text, "Appraisal")
	hasValueType := strings.Contains(text, "As Is") ||
		strings.Contains(text, "ARV") ||
		strings.Contains(text, "Subject To") ||
		strings.Contains(text, "Completed")
	return (hasConstruction && hasAppraisal) || (hasAppraisal && hasValueType)
}
