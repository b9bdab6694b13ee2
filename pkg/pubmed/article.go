package pubmed

// Article is the metadata extracted from a PubMed record.
type Article struct {
	PMID            string   `json:"pmid"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal"`
	PublicationDate string   `json:"publication_date"`
	Abstract        string   `json:"abstract"`
	DOI             string   `json:"doi,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// esearchResponse is the JSON envelope returned by esearch.fcgi.
type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// elinkResponse is the JSON envelope returned by elink.fcgi.
type elinkResponse struct {
	LinkSets []struct {
		LinkSetDBs []struct {
			DBTo  string `json:"dbto"`
			Links []string `json:"links"`
		} `json:"linksetdbs"`
	} `json:"linksets"`
}

// The efetch XML schema, reduced to the fields we surface.

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			AuthorList struct {
				Authors []struct {
					LastName string `xml:"LastName"`
					ForeName string `xml:"ForeName"`
					Collective string `xml:"CollectiveName"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
						Day   string `xml:"Day"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			ELocationIDs []struct {
				Type  string `xml:"EIdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
		KeywordList struct {
			Keywords []string `xml:"Keyword"`
		} `xml:"KeywordList"`
	} `xml:"MedlineCitation"`
	Data struct {
		ArticleIDs []struct {
			Type  string `xml:"IdType,attr"`
			Value string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}
