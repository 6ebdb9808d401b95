// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chemscreen/internal/httputil"
	"github.com/pdiddy/chemscreen/internal/ratelimit"
	"github.com/pdiddy/chemscreen/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

var testTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, cfg types.PubMedConfig) *Client {
	t.Helper()
	lim, err := ratelimit.New(1000)
	require.NoError(t, err)
	c := NewClient(cfg, lim, nil)
	c.now = func() time.Time { return testTime }
	return c
}

// swapEndpoints points both E-utilities endpoints at the test server
// and restores them when the test finishes.
func swapEndpoints(t *testing.T, srv *httptest.Server) {
	t.Helper()
	oldSearch, oldFetch := esearchBase, efetchBase
	esearchBase = srv.URL + "/esearch.fcgi"
	efetchBase = srv.URL + "/efetch.fcgi"
	t.Cleanup(func() {
		esearchBase, efetchBase = oldSearch, oldFetch
	})
}

const sampleEfetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>11111111</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2025</Year></PubDate>
          </JournalIssue>
          <Title>Environmental Science &amp; Technology</Title>
        </Journal>
        <ArticleTitle>Trichloroethylene degradation in groundwater</ArticleTitle>
        <Abstract>
          <AbstractText>Background text.</AbstractText>
          <AbstractText>Continued text.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Chen</LastName><ForeName>Wei</ForeName></Author>
          <Author><CollectiveName>EPA Working Group</CollectiveName></Author>
        </AuthorList>
        <PublicationTypeList>
          <PublicationType>Journal Article</PublicationType>
        </PublicationTypeList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">11111111</ArticleId>
        <ArticleId IdType="doi">10.1021/acs.est.5b01234</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>22222222</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><MedlineDate>2019 Jan-Feb</MedlineDate></PubDate>
          </JournalIssue>
          <Title>Chemosphere</Title>
        </Journal>
        <ArticleTitle>A review of solvent toxicity</ArticleTitle>
        <PublicationTypeList>
          <PublicationType>Review</PublicationType>
        </PublicationTypeList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

// esearchHandler answers both the id request and the count request,
// distinguishing them by rettype.
func esearchHandler(count int, ids ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rettype") == "count" {
			fmt.Fprintf(w, `{"esearchresult":{"count":"%d"}}`, count)
			return
		}
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		fmt.Fprintf(w, `{"esearchresult":{"count":"%d","idlist":[%s]}}`, count, strings.Join(quoted, ","))
	}
}

func TestFetchSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", esearchHandler(250, "11111111", "22222222"))
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "11111111,22222222", r.URL.Query().Get("id"))
		w.Write([]byte(sampleEfetchXML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	chem := types.Chemical{Name: "Trichloroethylene", CASNumber: "79-01-6"}
	result := c.Fetch(context.Background(), chem, types.SearchParameters{DateRangeYears: 10, MaxResults: 100})

	require.Empty(t, result.Error)
	assert.False(t, result.Failed())
	assert.Equal(t, []string{"11111111", "22222222"}, result.PMIDs)
	assert.Equal(t, 250, result.TotalCount, "total must come from the count request, not the id list")
	assert.Equal(t, testTime, result.RetrievedAt)
	assert.False(t, result.FromCache)

	require.Len(t, result.Publications, 2)
	first := result.Publications[0]
	assert.Equal(t, "11111111", first.PMID)
	assert.Equal(t, "Trichloroethylene degradation in groundwater", first.Title)
	assert.Equal(t, []string{"Wei Chen", "EPA Working Group"}, first.Authors)
	assert.Equal(t, "Environmental Science & Technology", first.Journal)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, "Background text. Continued text.", first.Abstract)
	assert.Equal(t, "10.1021/acs.est.5b01234", first.DOI)
	assert.False(t, first.IsReview)

	second := result.Publications[1]
	assert.Equal(t, 2019, second.Year, "year falls back to MedlineDate")
	assert.True(t, second.IsReview)
	assert.Empty(t, second.Authors)
}

func TestFetchZeroHits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", esearchHandler(0))
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	result := c.Fetch(context.Background(), types.Chemical{Name: "Obscurene"}, types.SearchParameters{MaxResults: 50})

	require.Empty(t, result.Error, "zero hits is a valid result, not a failure")
	assert.Empty(t, result.PMIDs)
	assert.Zero(t, result.TotalCount)
	assert.Empty(t, result.Publications)
}

func TestFetchPhraseNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[],"errorlist":{"phrasesnotfound":["Unobtanium"]}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	result := c.Fetch(context.Background(), types.Chemical{Name: "Unobtanium"}, types.SearchParameters{MaxResults: 50})

	assert.True(t, result.Failed())
	assert.Equal(t, ErrKindNotFound, result.ErrorKind)
	assert.Contains(t, result.Error, "Unobtanium")
}

func TestFetchServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{MaxRetries: 1})
	result := c.Fetch(context.Background(), types.Chemical{Name: "Benzene"}, types.SearchParameters{MaxResults: 50})

	assert.True(t, result.Failed())
	assert.Equal(t, ErrKindTransient, result.ErrorKind)
	assert.Contains(t, result.Error, "500")
	assert.Equal(t, int32(2), calls.Load(), "one attempt plus one retry")
}

func TestFetchRetriesPassRateGate(t *testing.T) {
	var idCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rettype") == "count" {
			fmt.Fprint(w, `{"esearchresult":{"count":"0"}}`)
			return
		}
		if idCalls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	lim, err := ratelimit.New(100)
	require.NoError(t, err)
	c := NewClient(types.PubMedConfig{MaxRetries: 2}, lim, nil)
	c.now = func() time.Time { return testTime }

	start := time.Now()
	result := c.Fetch(context.Background(), types.Chemical{Name: "Benzene"}, types.SearchParameters{MaxResults: 50})
	elapsed := time.Since(start)

	require.Empty(t, result.Error)
	assert.Equal(t, int32(3), idCalls.Load())
	// Two 429 retries plus the count call make four gated round trips.
	// At 100 req/s with burst 1 the last three wait 10ms each.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond,
		"retries must wait for a rate limiter slot")
}

func TestFetchMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	result := c.Fetch(context.Background(), types.Chemical{Name: "Benzene"}, types.SearchParameters{MaxResults: 50})

	assert.True(t, result.Failed())
	assert.Equal(t, ErrKindMalformed, result.ErrorKind)
}

func TestFetchInvalidChemicalSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	result := c.Fetch(context.Background(), types.Chemical{Name: "   "}, types.SearchParameters{MaxResults: 50})

	assert.True(t, result.Failed())
	assert.Equal(t, ErrKindMalformed, result.ErrorKind)
	assert.Zero(t, calls.Load())
}

func TestFetchTruncatesToMaxResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", esearchHandler(10, "1", "2", "3", "4", "5"))
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<PubmedArticleSet></PubmedArticleSet>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	c := newTestClient(t, types.PubMedConfig{})
	result := c.Fetch(context.Background(), types.Chemical{Name: "Toluene"}, types.SearchParameters{MaxResults: 3})

	require.Empty(t, result.Error)
	assert.Len(t, result.PMIDs, 3)
	assert.GreaterOrEqual(t, result.TotalCount, len(result.PMIDs))
}

func TestIdentificationParameters(t *testing.T) {
	seen := make(chan map[string]string, 8)
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen <- map[string]string{
			"tool":    q.Get("tool"),
			"email":   q.Get("email"),
			"api_key": q.Get("api_key"),
		}
		esearchHandler(0)(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	swapEndpoints(t, srv)

	cfg := types.PubMedConfig{APIKey: "secret-key", Email: "screen@example.org", ToolName: "chemscreen"}
	c := newTestClient(t, cfg)
	c.Fetch(context.Background(), types.Chemical{Name: "Xylene"}, types.SearchParameters{MaxResults: 10})

	params := <-seen
	assert.Equal(t, "chemscreen", params["tool"])
	assert.Equal(t, "screen@example.org", params["email"])
	assert.Equal(t, "secret-key", params["api_key"])
}

func TestBuildQuery(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		chem   types.Chemical
		params types.SearchParameters
		want   string
	}{
		{
			name:   "name only with review filter",
			chem:   types.Chemical{Name: "Benzene"},
			params: types.SearchParameters{DateRangeYears: 10},
			want:   `("Benzene"[Title/Abstract]) AND ("2016/03/15"[PDAT] : "3000"[PDAT]) NOT Review[PT]`,
		},
		{
			name:   "name and cas including reviews",
			chem:   types.Chemical{Name: "Trichloroethylene", CASNumber: "79-01-6"},
			params: types.SearchParameters{DateRangeYears: 5, IncludeReviews: true},
			want:   `("Trichloroethylene"[Title/Abstract] OR "79-01-6"[Title/Abstract]) AND ("2021/03/15"[PDAT] : "3000"[PDAT])`,
		},
		{
			name:   "synonyms joined with OR",
			chem:   types.Chemical{Name: "Perchloroethylene", Synonyms: []string{"PCE", " tetrachloroethylene ", ""}},
			params: types.SearchParameters{DateRangeYears: 10, IncludeReviews: true},
			want:   `("Perchloroethylene"[Title/Abstract] OR "PCE"[Title/Abstract] OR "tetrachloroethylene"[Title/Abstract]) AND ("2016/03/15"[PDAT] : "3000"[PDAT])`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.chem, tt.params, now))
		})
	}
}

func TestBuildQueryDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	chem := types.Chemical{Name: "Benzene", CASNumber: "71-43-2"}
	params := types.SearchParameters{DateRangeYears: 10}

	first := BuildQuery(chem, params, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildQuery(chem, params, now))
	}
}
