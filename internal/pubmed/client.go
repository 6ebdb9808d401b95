// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed queries the NCBI E-utilities API for per-chemical
// publication counts and record metadata.
//
// One Fetch is three round trips: an esearch for the capped PMID list,
// an esearch count request for the authoritative total, and an efetch
// for record metadata. Every round trip passes through the shared rate
// limiter before any network I/O. Fetch never returns a Go error;
// failures are folded into the result so the orchestrator can keep the
// batch moving.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/chemscreen/internal/httputil"
	"github.com/pdiddy/chemscreen/internal/ratelimit"
	"github.com/pdiddy/chemscreen/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	esearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	efetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// Failure kinds recorded on SearchResult.ErrorKind.
const (
	ErrKindTransient = "transient"
	ErrKindMalformed = "malformed"
	ErrKindNotFound  = "not_found"
)

// Client performs rate-limited literature searches against PubMed.
// Safe for concurrent use; the only shared mutable state is the
// http.Client connection pool and the limiter.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cfg        types.PubMedConfig
	log        *zap.Logger

	// now anchors date-range filters and RetrievedAt; tests pin it.
	now func() time.Time
}

// NewClient creates a Client using cfg and the shared limiter.
func NewClient(cfg types.PubMedConfig, limiter *ratelimit.Limiter, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// Fetch searches PubMed for one chemical and returns its result. The
// result has exactly one of a successful payload or an Error; transport
// failures, timeouts, and unparseable responses all become per-item
// errors rather than Go errors. Repeated calls with identical inputs
// are safe.
func (c *Client) Fetch(ctx context.Context, chem types.Chemical, params types.SearchParameters) types.SearchResult {
	if err := chem.Validate(); err != nil {
		return c.failed(chem, ErrKindMalformed, err)
	}

	query := BuildQuery(chem, params, c.now())

	pmids, notFound, err := c.esearchIDs(ctx, query, params.MaxResults)
	if err != nil {
		return c.failed(chem, classify(err), err)
	}
	if notFound {
		return c.failed(chem, ErrKindNotFound, fmt.Errorf("no PubMed records match %q", chem.Name))
	}

	// The id list is capped by retmax; the real total comes from a
	// dedicated count request and is never inferred from len(pmids).
	total, err := c.esearchCount(ctx, query)
	if err != nil {
		return c.failed(chem, classify(err), err)
	}
	if total < len(pmids) {
		total = len(pmids)
	}

	var pubs []types.Publication
	if len(pmids) > 0 {
		pubs, err = c.efetch(ctx, pmids)
		if err != nil {
			return c.failed(chem, classify(err), err)
		}
	}

	c.log.Debug("pubmed fetch complete",
		zap.String("chemical", chem.Name),
		zap.Int("pmids", len(pmids)),
		zap.Int("total", total),
	)

	return types.SearchResult{
		Chemical:     chem,
		PMIDs:        pmids,
		TotalCount:   total,
		Publications: pubs,
		RetrievedAt:  c.now(),
	}
}

func (c *Client) failed(chem types.Chemical, kind string, err error) types.SearchResult {
	c.log.Warn("pubmed fetch failed",
		zap.String("chemical", chem.Name),
		zap.String("kind", kind),
		zap.Error(err),
	)
	return types.SearchResult{
		Chemical:    chem,
		Error:       err.Error(),
		ErrorKind:   kind,
		RetrievedAt: c.now(),
	}
}

// transportError marks failures worth retrying later (network, timeout,
// non-2xx status). Everything else that goes wrong is a parse problem.
type transportError struct{ err error }

func (e transportError) Error() string { return e.err.Error() }
func (e transportError) Unwrap() error { return e.err }

func classify(err error) string {
	if _, ok := err.(transportError); ok {
		return ErrKindTransient
	}
	return ErrKindMalformed
}

// esearchIDs runs the id-search request. notFound reports that PubMed
// rejected every query phrase, which is distinct from a clean zero-hit
// search.
func (c *Client) esearchIDs(ctx context.Context, query string, maxResults int) (pmids []string, notFound bool, err error) {
	if maxResults <= 0 || maxResults > types.MaxResultsCeiling {
		maxResults = 100
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}

	var er esearchResponse
	if err := c.getJSON(ctx, esearchBase, params, &er); err != nil {
		return nil, false, err
	}

	if er.Result.ErrorList != nil && len(er.Result.ErrorList.PhrasesNotFound) > 0 && len(er.Result.IDList) == 0 {
		return nil, true, nil
	}

	ids := er.Result.IDList
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, false, nil
}

// esearchCount runs the count-only request and returns the authoritative
// total reported by PubMed.
func (c *Client) esearchCount(ctx context.Context, query string) (int, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {"0"},
		"rettype": {"count"},
		"retmode": {"json"},
	}

	var er esearchResponse
	if err := c.getJSON(ctx, esearchBase, params, &er); err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(er.Result.Count)
	if err != nil {
		return 0, fmt.Errorf("parsing count field %q: %w", er.Result.Count, err)
	}
	return count, nil
}

// getJSON issues one rate-limited GET and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, base string, params url.Values, out any) error {
	body, err := c.get(ctx, base, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing esearch response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, base string, params url.Values) ([]byte, error) {
	c.identify(params)

	reqURL := base + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	// The limiter gates every attempt inside the retry loop, so 429
	// recoveries cannot exceed the NCBI ceiling either.
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries, c.limiter.Acquire)
	if err != nil {
		return nil, transportError{fmt.Errorf("E-utilities request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportError{fmt.Errorf("E-utilities returned HTTP %d", resp.StatusCode)}
	}

	return readAll(resp)
}

// identify attaches the tool, email, and api_key parameters NCBI uses
// to attribute traffic.
func (c *Client) identify(params url.Values) {
	tool := c.cfg.ToolName
	if tool == "" {
		tool = "chemscreen"
	}
	params.Set("tool", tool)
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
}

// E-utilities esearch JSON structures. Count arrives as a string.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count     string            `json:"count"`
	RetMax    string            `json:"retmax"`
	IDList    []string          `json:"idlist"`
	ErrorList *esearchErrorList `json:"errorlist"`
}

type esearchErrorList struct {
	PhrasesNotFound []string `json:"phrasesnotfound"`
	FieldsNotFound  []string `json:"fieldsnotfound"`
}
