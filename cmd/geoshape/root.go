package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geoshape-index/internal/app"
	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/geo/sfkernel"
	"github.com/mohammed-shakir/geoshape-index/internal/geoshape"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
	"github.com/mohammed-shakir/geoshape-index/internal/ingest"
	"github.com/mohammed-shakir/geoshape-index/internal/ingest/kafkaconsumer"
	"github.com/mohammed-shakir/geoshape-index/internal/ingest/publisher"
	"github.com/mohammed-shakir/geoshape-index/internal/logger"
	"github.com/mohammed-shakir/geoshape-index/internal/shape"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "geoshape",
		Short:        "Geo shape indexing tool",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load(".env")
		},
	}
	root.AddCommand(newEvalCmd(), newIndexCmd(), newPublishCmd(), newLevelsCmd())
	return root
}

func newEvalCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "eval SHAPE_JSON",
		Short: "Evaluate a shape expression and print the result as WKT",
		Long: "Evaluate a shape expression. With --input the expression runs as a\n" +
			"transformation over that geometry, otherwise omitted operands are an error.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shape.Decode([]byte(args[0]))
			if err != nil {
				return err
			}
			k, err := sfkernel.New()
			if err != nil {
				return err
			}
			var res sfgeom.Geometry
			if input != "" {
				in, err := k.ParseWKT(input)
				if err != nil {
					return errors.Wrap(err, "parse input")
				}
				if res, err = shape.Apply[sfgeom.Geometry](k, s, in); err != nil {
					return err
				}
			} else {
				if err := shape.Validate(s, false); err != nil {
					return err
				}
				if res, err = shape.Evaluate[sfgeom.Geometry](k, s); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.AsText())
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "WKT bound to omitted operands")
	return cmd
}

type indexLine struct {
	ID      string `json:"id"`
	Cells   int    `json:"cells"`
	Geoms   int    `json:"geometries"`
	Error   string `json:"error,omitempty"`
	Entries any    `json:"entries,omitempty"`
}

func newIndexCmd() *cobra.Command {
	var (
		schemaPath string
		workers    int
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "index [FILE]",
		Short: "Index newline-delimited JSON documents and print one result per line",
		Long: "Each input line is a document {\"id\": \"...\", \"columns\": {\"col\": \"WKT\"}}.\n" +
			"Documents without an id get a random one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := sfkernel.New()
			if err != nil {
				return err
			}
			zl := logger.Build(logger.Config{Level: "warn", Component: "cli"}, cmd.ErrOrStderr())
			schema, err := app.LoadSchema(schemaPath, k, logger.NewSlog(&zl))
			if err != nil {
				return err
			}
			docs, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			results, err := ingest.IndexAll(cmd.Context(), schema, docs, workers)
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results, verbose)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "schema.json", "JSON list of field specs")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&verbose, "entries", false, "print the entries themselves")
	return cmd
}

func readDocuments(r io.Reader) ([]model.Document, error) {
	var docs []model.Document
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read documents")
	}
	return docs, nil
}

func writeResults(w io.Writer, results []ingest.Result, verbose bool) error {
	enc := json.NewEncoder(w)
	failed := 0
	for _, r := range results {
		out := indexLine{ID: r.ID}
		if r.Err != nil {
			failed++
			out.Error = r.Err.Error()
		} else {
			out.Cells, out.Geoms = index.Count(r.Entries)
			if verbose {
				out.Entries = r.Entries
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func newPublishCmd() *cobra.Command {
	var (
		brokers string
		topic   string
		del     bool
	)
	cmd := &cobra.Command{
		Use:   "publish [FILE]",
		Short: "Send newline-delimited JSON documents to the indexer topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if brokers == "" {
				brokers = cfg.Kafka.Brokers
			}
			if topic == "" {
				topic = cfg.Kafka.Topic
			}
			docs, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			zl := logger.Build(logger.Config{Level: "warn", Component: "publisher"}, cmd.ErrOrStderr())
			p, err := publisher.New(kafkaconsumer.SplitCSV(brokers), topic, zl)
			if err != nil {
				return err
			}
			op := model.OpUpsert
			if del {
				op = model.OpDelete
			}
			for _, d := range docs {
				if err := p.Publish(cmd.Context(), model.Change{ID: d.ID, Op: op, Columns: d.Columns}); err != nil {
					_ = p.Close()
					return err
				}
			}
			if err := p.Close(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d changes to %s\n", len(docs), topic)
			return err
		},
	}
	cmd.Flags().StringVar(&brokers, "brokers", "", "comma separated brokers (default $KAFKA_BROKERS)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic (default $KAFKA_TOPIC)")
	cmd.Flags().BoolVar(&del, "delete", false, "publish deletes for the listed ids")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]model.Document, error) {
	if len(args) == 0 {
		return readDocuments(cmd.InOrStdin())
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return readDocuments(f)
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the grids and their valid max_levels range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			grids := geoshape.Grids()
			for _, name := range grids.Names() {
				g, err := grids.Lookup(name)
				if err != nil {
					return err
				}
				def := ""
				if name == geoshape.DefaultGrid {
					def = fmt.Sprintf(" (default, max_levels %d)", geoshape.DefaultMaxLevels)
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-8s %d..%d%s\n", name, g.MinLevel(), g.MaxLevel(), def); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

