// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// maxBodyBytes caps response reads. Large batches of abstracts stay
// well under this.
const maxBodyBytes = 32 << 20

// efetch retrieves record metadata for the given PMIDs. Records that
// cannot be interpreted are skipped rather than failing the fetch.
func (c *Client) efetch(ctx context.Context, pmids []string) ([]types.Publication, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}

	body, err := c.get(ctx, efetchBase, params)
	if err != nil {
		return nil, err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	pubs := make([]types.Publication, 0, len(set.Articles))
	for _, art := range set.Articles {
		pub, ok := art.toPublication()
		if !ok {
			continue
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

func readAll(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError{fmt.Errorf("reading response body: %w", err)}
	}
	return body, nil
}

// PubMed efetch XML structures, trimmed to the fields the screen needs.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID        string        `xml:"MedlineCitation>PMID"`
	Title       string        `xml:"MedlineCitation>Article>ArticleTitle"`
	Journal     string        `xml:"MedlineCitation>Article>Journal>Title"`
	Abstract    []string      `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Authors     []articleAuth `xml:"MedlineCitation>Article>AuthorList>Author"`
	PubTypes    []string      `xml:"MedlineCitation>Article>PublicationTypeList>PublicationType"`
	JournalYear string        `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
	MedlineDate string        `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>MedlineDate"`
	ArticleIDs  []articleID   `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type articleAuth struct {
	LastName   string `xml:"LastName"`
	ForeName   string `xml:"ForeName"`
	Collective string `xml:"CollectiveName"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

func (a pubmedArticle) toPublication() (types.Publication, bool) {
	if a.PMID == "" {
		return types.Publication{}, false
	}

	pub := types.Publication{
		PMID:     a.PMID,
		Title:    strings.TrimSpace(a.Title),
		Journal:  strings.TrimSpace(a.Journal),
		Abstract: strings.TrimSpace(strings.Join(a.Abstract, " ")),
		Year:     a.year(),
	}

	for _, auth := range a.Authors {
		switch {
		case auth.Collective != "":
			pub.Authors = append(pub.Authors, auth.Collective)
		case auth.LastName != "":
			name := auth.LastName
			if auth.ForeName != "" {
				name = auth.ForeName + " " + auth.LastName
			}
			pub.Authors = append(pub.Authors, name)
		}
	}

	for _, id := range a.ArticleIDs {
		if id.Type == "doi" {
			pub.DOI = strings.TrimSpace(id.Value)
			break
		}
	}

	for _, pt := range a.PubTypes {
		if strings.EqualFold(pt, "Review") {
			pub.IsReview = true
			break
		}
	}

	return pub, true
}

// year prefers the structured Year element and falls back to the
// leading year of a MedlineDate range like "2023 Jan-Feb". Zero means
// the record is undated.
func (a pubmedArticle) year() int {
	if y, err := strconv.Atoi(strings.TrimSpace(a.JournalYear)); err == nil {
		return y
	}
	fields := strings.Fields(a.MedlineDate)
	if len(fields) > 0 {
		if y, err := strconv.Atoi(fields[0]); err == nil {
			return y
		}
	}
	return 0
}
