package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/eutils-client/pkg/batch"
	"github.com/Sternrassler/eutils-client/pkg/client"
	"github.com/Sternrassler/eutils-client/pkg/databases"
	"github.com/Sternrassler/eutils-client/pkg/pagination"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

// bulkFlags registers the chunking flags shared by the id-based commands.
func bulkFlags(cmd *cobra.Command) {
	cmd.Flags().Int("batch-size", 0, "split identifiers into chunks of this size (0 sends one request)")
	cmd.Flags().Duration("sleep", batch.DefaultInterval, "pause between chunks; failed chunks wait twice as long")
	cmd.Flags().String("ids-file", "", "read identifiers from a file, one per line (- for stdin)")
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "List UIDs matching a text query (esearch)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			db, _ := flags.GetString("db")
			maxResults, _ := flags.GetInt("max")
			ignore, _ := flags.GetBool("ignore-limit")
			resume, _ := flags.GetInt("resume-from")
			pageSize, _ := flags.GetInt("page-size")
			sleep, _ := flags.GetDuration("sleep")

			params := query.SearchParams{
				Term:                  strings.Join(args, " "),
				Database:              db,
				MaxResults:            maxResults,
				IgnoreMaxResultsLimit: ignore,
				ResumeFrom:            resume,
			}

			if pageSize > 0 {
				result, err := c.InPagesOf(pageSize, sleep).Search(cmd.Context(), params)
				if err != nil {
					return err
				}
				return writePages(cmd.OutOrStdout(), result)
			}

			resp, err := c.Search(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().String("db", query.DefaultDatabase, "database to search")
	cmd.Flags().Int("max", 20, "maximum number of UIDs (retmax)")
	cmd.Flags().Bool("ignore-limit", false, "allow --max above the documented limit")
	cmd.Flags().Int("resume-from", 0, "offset of the first UID (retstart)")
	cmd.Flags().Int("page-size", 0, "retrieve every result in pages of this size")
	cmd.Flags().Duration("sleep", pagination.DefaultInterval, "pause between pages; failed pages wait twice as long")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary [ids...]",
		Short: "Retrieve document summaries (esummary)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := readIDs(cmd, args)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			db, _ := cmd.Flags().GetString("db")
			maxResults, err := maxFor(cmd, ids)
			if err != nil {
				return err
			}
			params := query.SummaryParams{IDs: ids, Database: db, MaxResults: maxResults}

			b, ok := batchClient(cmd, c)
			if !ok {
				resp, err := c.Summarize(cmd.Context(), params)
				if err != nil {
					return err
				}
				return writeResponse(cmd.OutOrStdout(), resp)
			}
			result, err := b.Summarize(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeChunks(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("db", query.DefaultDatabase, "database the UIDs belong to")
	cmd.Flags().Int("max", 0, "maximum number of records (default: number of identifiers or batch size)")
	bulkFlags(cmd)
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [ids...]",
		Short: "Retrieve formatted records (efetch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := readIDs(cmd, args)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			db, _ := cmd.Flags().GetString("db")
			retmode, _ := cmd.Flags().GetString("retmode")
			maxResults, err := maxFor(cmd, ids)
			if err != nil {
				return err
			}
			params := query.FetchParams{IDs: ids, Database: db, MaxResults: maxResults, ReturnType: query.ReturnType(retmode)}

			b, ok := batchClient(cmd, c)
			if !ok {
				resp, err := c.Fetch(cmd.Context(), params)
				if err != nil {
					return err
				}
				return writeResponse(cmd.OutOrStdout(), resp)
			}
			result, err := b.Fetch(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeChunks(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("db", query.DefaultDatabase, "database the UIDs belong to")
	cmd.Flags().Int("max", 0, "maximum number of records (default: number of identifiers or batch size)")
	cmd.Flags().String("retmode", string(query.ReturnXML), "record format: xml or json")
	bulkFlags(cmd)
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link [ids...]",
		Short: "Find related records (elink)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := readIDs(cmd, args)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			db, _ := cmd.Flags().GetString("db")
			from, _ := cmd.Flags().GetString("from")
			command, _ := cmd.Flags().GetString("cmd")
			params := query.LinkParams{IDs: ids, Database: db, DatabaseFrom: from, Command: query.Command(command)}

			b, ok := batchClient(cmd, c)
			if !ok {
				resp, err := c.Link(cmd.Context(), params)
				if err != nil {
					return err
				}
				return writeResponse(cmd.OutOrStdout(), resp)
			}
			result, err := b.Link(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeChunks(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("db", "", "target database (empty links within --from)")
	cmd.Flags().String("from", "", "database the UIDs belong to (required)")
	cmd.Flags().String("cmd", string(query.CommandNeighbor), "link command")
	_ = cmd.MarkFlagRequired("from")
	bulkFlags(cmd)
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [database]",
		Short: "List databases or describe one (einfo)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			var db string
			if len(args) == 1 {
				db = args[0]
			}
			resp, err := c.Info(cmd.Context(), db)
			if err != nil {
				return err
			}
			return writeResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newCitationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "citations <file>",
		Short: "Match citations to PubMed IDs (ecitmatch)",
		Long: `Reads a YAML or JSON list of citations with the fields journal, year,
volume, first_page, author and key, and prints the matching PMIDs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readCitations(args[0])
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := c.FindCitations(cmd.Context(), query.CitationParams{Citations: records})
			if err != nil {
				return err
			}
			return writeResponse(cmd.OutOrStdout(), resp)
		},
	}
}

func newDatabasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List the known database codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Code", "Name", "UID"})

			db := databases.Default()
			for _, code := range db.Codes() {
				entry, _ := db.Lookup(code)
				t.AppendRow(table.Row{entry.Code, entry.Name, entry.UID})
			}
			t.AppendFooter(table.Row{"", "Total", len(db.Codes())})

			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

// batchClient returns the batch-mode client when --batch-size is positive.
func batchClient(cmd *cobra.Command, c *client.Client) (*client.BatchClient, bool) {
	size, _ := cmd.Flags().GetInt("batch-size")
	if size <= 0 {
		return nil, false
	}
	sleep, _ := cmd.Flags().GetDuration("sleep")
	return c.InBatchesOf(size, sleep), true
}

// maxFor defaults retmax to the number of records a single request covers.
func maxFor(cmd *cobra.Command, ids []string) (int, error) {
	maxResults, _ := cmd.Flags().GetInt("max")
	if maxResults < 0 {
		return 0, errors.New("--max must not be negative")
	}
	if maxResults > 0 {
		return maxResults, nil
	}
	if size, _ := cmd.Flags().GetInt("batch-size"); size > 0 && size < len(ids) {
		return size, nil
	}
	return len(ids), nil
}

// readIDs collects identifiers from args and --ids-file. Arguments may be
// comma separated.
func readIDs(cmd *cobra.Command, args []string) ([]string, error) {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	if path, _ := cmd.Flags().GetString("ids-file"); path != "" {
		var r io.Reader
		if path == "-" {
			r = cmd.InOrStdin()
		} else {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("open ids file: %w", err)
			}
			defer f.Close()
			r = f
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" && !strings.HasPrefix(id, "#") {
				ids = append(ids, id)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read ids file: %w", err)
		}
	}

	if len(ids) == 0 {
		return nil, errors.New("no identifiers given (pass them as arguments or with --ids-file)")
	}
	return ids, nil
}

// readCitations decodes a YAML (or JSON) citation list.
func readCitations(path string) ([]query.CitationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read citations: %w", err)
	}
	var records []query.CitationRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode citations %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no citations in %s", path)
	}
	return records, nil
}
