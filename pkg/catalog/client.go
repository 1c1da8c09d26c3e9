package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/screenwise/cinerag/internal/models"
	"golang.org/x/time/rate"
)

// PageSize is the fixed page length of the catalog listing endpoints.
const PageSize = 20

type ClientConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// Client is a rate-limited HTTP client for the catalog metadata API.
type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 4 // requests per second by default
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Detail is the subset of a detail payload this pipeline consumes.
// Movie payloads populate Title/ReleaseDate, TV payloads Name/FirstAirDate.
type Detail struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	Genres       []Named `json:"genres"`
	PosterPath   string  `json:"poster_path"`
}

type Named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Credits struct {
	Cast []Named `json:"cast"`
}

// Keywords covers both payload shapes: movie endpoints return "keywords",
// tv endpoints return "results".
type Keywords struct {
	Keywords []Named `json:"keywords"`
	Results  []Named `json:"results"`
}

func (k Keywords) Names() []string {
	list := k.Keywords
	if len(list) == 0 {
		list = k.Results
	}
	names := make([]string, 0, len(list))
	for _, kw := range list {
		names = append(names, kw.Name)
	}
	return names
}

// ListingPage is one page of a popular/top-rated/search/discover listing.
type ListingPage struct {
	Page         int      `json:"page"`
	Results      []Detail `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// DiscoverParams mirrors the discover endpoint's filter surface.
type DiscoverParams struct {
	Page           int
	Genres         []int
	Year           int
	VoteAverageGTE float64
	SortBy         string
}

func (c *Client) GetDetails(ctx context.Context, kind models.Kind, id int) (Detail, error) {
	var detail Detail
	err := c.get(ctx, fmt.Sprintf("/%s/%d", kind, id), nil, &detail)
	return detail, err
}

func (c *Client) GetCredits(ctx context.Context, kind models.Kind, id int) (Credits, error) {
	var credits Credits
	err := c.get(ctx, fmt.Sprintf("/%s/%d/credits", kind, id), nil, &credits)
	return credits, err
}

func (c *Client) GetKeywords(ctx context.Context, kind models.Kind, id int) (Keywords, error) {
	var keywords Keywords
	err := c.get(ctx, fmt.Sprintf("/%s/%d/keywords", kind, id), nil, &keywords)
	return keywords, err
}

func (c *Client) GetPopular(ctx context.Context, kind models.Kind, page int) (ListingPage, error) {
	var listing ListingPage
	err := c.get(ctx, fmt.Sprintf("/%s/popular", kind), url.Values{
		"page": {strconv.Itoa(page)},
	}, &listing)
	return listing, err
}

func (c *Client) GetTopRated(ctx context.Context, kind models.Kind, page int) (ListingPage, error) {
	var listing ListingPage
	err := c.get(ctx, fmt.Sprintf("/%s/top_rated", kind), url.Values{
		"page": {strconv.Itoa(page)},
	}, &listing)
	return listing, err
}

func (c *Client) Search(ctx context.Context, kind models.Kind, page int, query string) (ListingPage, error) {
	var listing ListingPage
	err := c.get(ctx, fmt.Sprintf("/search/%s", kind), url.Values{
		"page":  {strconv.Itoa(page)},
		"query": {query},
	}, &listing)
	return listing, err
}

func (c *Client) Discover(ctx context.Context, kind models.Kind, params DiscoverParams) (ListingPage, error) {
	values := url.Values{}
	if params.Page > 0 {
		values.Set("page", strconv.Itoa(params.Page))
	}
	if len(params.Genres) > 0 {
		genres := make([]string, 0, len(params.Genres))
		for _, g := range params.Genres {
			genres = append(genres, strconv.Itoa(g))
		}
		values.Set("with_genres", strings.Join(genres, ","))
	}
	if params.Year > 0 {
		values.Set("year", strconv.Itoa(params.Year))
	}
	if params.VoteAverageGTE > 0 {
		values.Set("vote_average.gte", strconv.FormatFloat(params.VoteAverageGTE, 'f', -1, 64))
	}
	if params.SortBy != "" {
		values.Set("sort_by", params.SortBy)
	}

	var listing ListingPage
	err := c.get(ctx, fmt.Sprintf("/discover/%s", kind), values, &listing)
	return listing, err
}

func (c *Client) GetGenres(ctx context.Context, kind models.Kind) ([]Named, error) {
	var payload struct {
		Genres []Named `json:"genres"`
	}
	err := c.get(ctx, fmt.Sprintf("/genre/%s/list", kind), nil, &payload)
	return payload.Genres, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
