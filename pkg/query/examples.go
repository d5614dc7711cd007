package query

// Example pairs a descriptor with the canonical URI documented for it in
// the E-utilities reference (NCBI Bookshelf NBK25499).
type Example struct {
	Name  string
	Query Descriptor
	URI   string
}

// Examples returns the known-good request examples.
func Examples() []Example {
	return []Example{
		{
			Name:  "Link from protein to gene",
			Query: must(NewLink(LinkParams{DatabaseFrom: "protein", Database: "gene", IDs: []int{15718680, 157427902}})),
			URI:   "elink.fcgi?db=gene&dbfrom=protein&id=15718680,157427902&cmd=neighbor",
		},
		{
			Name:  "Find articles related to PMID 20210808",
			Query: must(NewLink(LinkParams{Database: "pubmed", DatabaseFrom: "pubmed", IDs: []int{20210808}, Command: CommandNeighborScore})),
			URI:   "elink.fcgi?db=pubmed&dbfrom=pubmed&id=20210808&cmd=neighbor_score",
		},
		{
			Name:  "List all possible links from two protein GIs",
			Query: must(NewLink(LinkParams{DatabaseFrom: "protein", IDs: []int{15718680, 157427902}, Command: CommandACheck})),
			URI:   "elink.fcgi?dbfrom=protein&id=15718680,157427902&cmd=acheck",
		},
		{
			Name:  "List all possible links from two protein GIs to PubMed",
			Query: must(NewLink(LinkParams{DatabaseFrom: "protein", IDs: []int{15718680, 157427902}, Command: CommandACheck, Database: "pubmed"})),
			URI:   "elink.fcgi?db=pubmed&dbfrom=protein&id=15718680,157427902&cmd=acheck",
		},
		{
			Name: "Check PMIDs for two citations",
			Query: must(NewCitation(CitationParams{
				Database: "pubmed",
				Citations: []CitationRecord{
					{Journal: "proc natl acad sci u s a", Year: 1991, Volume: 88, FirstPage: 3248, Author: "mann bj", Key: "Art1"},
					{Journal: "science", Year: 1987, Volume: 235, FirstPage: 182, Author: "palmenberg ac", Key: "Art2"},
				},
			})),
			URI: "ecitmatch.fcgi?db=pubmed&retmode=xml&bdata=proc+natl+acad+sci+u+s+a|1991|88|3248|mann+bj|Art1|%0Dscience|1987|235|182|palmenberg+ac|Art2|",
		},
		{
			Name:  "Find articles about human cancers",
			Query: must(NewSearch(SearchParams{Term: "cancer AND human[organism]", Database: "pubmed", MaxResults: 10000})),
			URI:   "esearch.fcgi?db=pubmed&retmax=10000&term=cancer AND human[organism]",
		},
		{
			Name:  "Search PubMed Central for free full text articles containing the query stem cells",
			Query: must(NewSearch(SearchParams{Term: "stem cells AND free fulltext[filter]", Database: "pmc", MaxResults: 10000})),
			URI:   "esearch.fcgi?db=pmc&retmax=10000&term=stem cells AND free fulltext[filter]",
		},
	}
}

func must[D Descriptor](d D, err error) D {
	if err != nil {
		panic(err)
	}
	return d
}
