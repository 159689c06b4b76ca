// Package update checks GitHub for a newer scribe release. It only reports;
// installing is left to the package manager that installed scribe.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Channel selects which releases count as candidates.
type Channel string

const (
	ChannelStable     Channel = "stable"     // published, non-prerelease
	ChannelPrerelease Channel = "prerelease" // also beta and rc builds
)

// Release is the subset of the GitHub release object scribe uses.
type Release struct {
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	HTMLURL    string    `json:"html_url"`
	Published  time.Time `json:"published_at"`
	Prerelease bool      `json:"prerelease"`
	Draft      bool      `json:"draft"`
}

// Checker queries the releases of one repository.
type Checker struct {
	apiURL  string
	current string
	channel Channel
	client  *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithAPIURL replaces https://api.github.com/repos/<owner>/<repo>.
func WithAPIURL(url string) Option {
	return func(c *Checker) {
		if url != "" {
			c.apiURL = strings.TrimRight(url, "/")
		}
	}
}

// WithChannel sets the release channel.
func WithChannel(ch Channel) Option {
	return func(c *Checker) { c.channel = ch }
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// NewChecker creates a Checker for owner/repo comparing against current.
func NewChecker(owner, repo, current string, opts ...Option) *Checker {
	c := &Checker{
		apiURL:  fmt.Sprintf("https://api.github.com/repos/%s/%s", owner, repo),
		current: current,
		channel: ChannelStable,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the newest release in the checker's channel.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	if c.channel == ChannelStable {
		var rel Release
		if err := c.get(ctx, "/releases/latest", &rel); err != nil {
			return nil, err
		}
		return &rel, nil
	}

	var releases []Release
	if err := c.get(ctx, "/releases?per_page=30", &releases); err != nil {
		return nil, err
	}
	for i := range releases {
		if !releases[i].Draft {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("update: no releases found in channel %s", c.channel)
}

// Check reports whether Latest is newer than the running version.
func (c *Checker) Check(ctx context.Context) (bool, *Release, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return false, nil, err
	}
	if IsNewer(NormalizeVersion(rel.TagName), NormalizeVersion(c.current)) {
		return true, rel, nil
	}
	return false, rel, nil
}

func (c *Checker) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("update: failed to fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update: github API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("update: failed to parse releases: %w", err)
	}
	return nil
}

// gitDescribe matches the "-<commits>-g<hash>" suffix of git describe.
var gitDescribe = regexp.MustCompile(`-\d+-g[0-9a-f]+$`)

// NormalizeVersion strips a leading "v" and the git describe and "-dirty"
// suffixes a local build carries. Prerelease labels are kept.
func NormalizeVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	v = strings.TrimSuffix(v, "-dirty")
	return gitDescribe.ReplaceAllString(v, "")
}

// IsNewer reports whether a > b, comparing dot-separated numeric fields.
// Non-numeric fields (such as "dev") count as zero.
func IsNewer(a, b string) bool {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")

	for i := 0; i < len(pa) && i < len(pb); i++ {
		var va, vb int
		if _, err := fmt.Sscanf(pa[i], "%d", &va); err != nil {
			va = 0
		}
		if _, err := fmt.Sscanf(pb[i], "%d", &vb); err != nil {
			vb = 0
		}
		if va != vb {
			return va > vb
		}
	}
	return len(pa) > len(pb)
}
