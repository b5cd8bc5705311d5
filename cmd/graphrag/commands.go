package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/graphrag"
	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/jobs"
	"github.com/poiesic/graphrag/metrics"
	"github.com/poiesic/graphrag/reembed"
	"github.com/urfave/cli/v2"
)

const progressInterval = 10

// databaseOptions are appended to every session's database options.
var databaseOptions []graphrag.DatabaseOption

// session is what one command runs against.
type session struct {
	cfg       *Config
	db        *graphrag.Database
	engine    *graphrag.Engine
	scheduler *jobs.Scheduler
	metrics   *metrics.Collector
	lib       library
	out       io.Writer
}

func openSession(ctx context.Context, cfg *Config, out io.Writer, opts ...graphrag.DatabaseOption) (*session, error) {
	collector := metrics.NewCollector(metrics.DefaultNamespace)

	opts = append([]graphrag.DatabaseOption{
		graphrag.WithAIConfig(cfg.aiConfig()),
		graphrag.WithDatabaseMetrics(collector),
	}, opts...)
	if cfg.Store == storeNeo4j {
		opts = append(opts, graphrag.WithNeo4j(cfg.neo4jConfig()))
	}

	db, err := graphrag.NewDatabase(ctx, cfg.badgerDir(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	scheduler, err := jobs.NewScheduler(jobs.WithPoolSize(cfg.Workers))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &session{
		cfg:       cfg,
		db:        db,
		engine:    db.Engine(),
		scheduler: scheduler,
		metrics:   collector,
		lib:       library{root: cfg.libraryDir()},
		out:       out,
	}, nil
}

func (s *session) Close() error {
	var errs []error
	if err := s.scheduler.Close(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteToTextfile(s.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// run submits fn as a job for space and waits for it.
func (s *session) run(ctx context.Context, space, kind string, fn jobs.Func) error {
	id, err := s.scheduler.Submit(space, kind, fn)
	if err != nil {
		return err
	}
	slog.Debug("job queued", "id", id, "space", space, "kind", kind)

	status, err := s.scheduler.Wait(ctx, id)
	if err != nil {
		return err
	}
	if status.State == jobs.StateFailed {
		return fmt.Errorf("%s failed: %w", kind, status.Err)
	}
	if res := status.Result; res != nil && res.Err != nil {
		slog.Warn("job finished with problems", "id", id, "status", res.Status, "err", res.Err)
	}
	return nil
}

func (s *session) monitor() graphrag.CallOption {
	return graphrag.WithMonitor(newProgressMonitor(os.Stderr, progressInterval))
}

// warm loads the lexical index of space from the graph store.
func (s *session) warm(ctx context.Context, space string) error {
	n, err := s.engine.Warm(ctx, space)
	if err != nil {
		return fmt.Errorf("loading space %q: %w", space, err)
	}
	slog.Debug("loaded space", "space", space, "chunks", n)
	return nil
}

type action func(ctx context.Context, c *cli.Context, s *session) error

func withSession(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := openSession(ctx, settings(c), c.App.Writer, databaseOptions...)
		if err != nil {
			return err
		}
		runErr := fn(ctx, c, s)
		return errors.Join(runErr, s.Close())
	}
}

var (
	ingestCommand   = withSession(ingest)
	addCommand      = withSession(add)
	removeCommand   = withSession(remove)
	filesCommand    = withSession(listFiles)
	askCommand      = withSession(ask)
	retrieveCommand = withSession(retrieve)
	statsCommand    = withSession(stats)
	reembedCommand  = withSession(reembedSpace)
	clearCommand    = withSession(clearSpace)
)

func ingest(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	for _, src := range c.Args().Slice() {
		if _, err := s.lib.add(space, src); err != nil {
			return fmt.Errorf("adding %s: %w", src, err)
		}
	}
	files, err := s.lib.files(space)
	if err != nil {
		return err
	}

	return s.run(ctx, space, "upload", func(ctx context.Context) *ingestion.Result {
		return s.engine.Ingest(ctx, space, files, ingestion.ModeFull, s.monitor())
	})
}

func add(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if c.NArg() != 1 {
		return errors.New("exactly one file is required")
	}
	if err := s.warm(ctx, space); err != nil {
		return err
	}
	path, err := s.lib.add(space, c.Args().First())
	if err != nil {
		return err
	}

	return s.run(ctx, space, "upload", func(ctx context.Context) *ingestion.Result {
		return s.engine.Ingest(ctx, space, []string{path}, ingestion.ModeIncremental, s.monitor())
	})
}

func remove(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if c.NArg() != 1 {
		return errors.New("exactly one file name is required")
	}
	files, err := s.lib.files(space)
	if err != nil {
		return err
	}
	removed, err := s.lib.remove(space, c.Args().First())
	if err != nil {
		return err
	}

	return s.run(ctx, space, "delete", func(ctx context.Context) *ingestion.Result {
		return s.engine.RemoveFile(ctx, space, removed, files, s.monitor())
	})
}

func listFiles(_ context.Context, c *cli.Context, s *session) error {
	files, err := s.lib.files(c.String("space"))
	if err != nil {
		return err
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s\t%d\t%s\n", info.Name(), info.Size(), info.ModTime().Format(time.RFC3339))
	}
	return nil
}

func ask(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if err := s.warm(ctx, space); err != nil {
		return err
	}

	answer := s.engine.Ask(ctx, space, strings.Join(c.Args().Slice(), " "))
	if c.Bool("json") {
		return writeJSON(s.out, map[string]any{
			"answer":  answer.Text,
			"status":  answer.Status.String(),
			"reason":  answer.Reason,
			"sources": answer.Sources,
		})
	}

	fmt.Fprintln(s.out, answer.Text)
	if c.Bool("sources") {
		for i, src := range answer.Sources {
			fmt.Fprintf(s.out, "\n[%d] %s\n", i+1, src)
		}
	}
	return nil
}

func retrieve(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if err := s.warm(ctx, space); err != nil {
		return err
	}

	r, err := s.engine.Retrieve(ctx, space, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		type candidate struct {
			Source string  `json:"source"`
			Score  float64 `json:"score"`
			Text   string  `json:"text"`
		}
		out := struct {
			Status     string      `json:"status"`
			Candidates []candidate `json:"candidates"`
		}{Status: r.Status.String(), Candidates: []candidate{}}
		for _, cand := range r.Candidates {
			out.Candidates = append(out.Candidates, candidate{Source: cand.Source.String(), Score: cand.Score, Text: cand.Text})
		}
		return writeJSON(s.out, out)
	}

	for i, cand := range r.Candidates {
		fmt.Fprintf(s.out, "%2d. [%s %.3f] %s\n", i+1, cand.Source, cand.Score, preview(cand.Text, 100))
	}
	if r.Err != nil {
		fmt.Fprintf(s.out, "retrieval %s: %v\n", r.Status, r.Err)
	}
	return nil
}

func stats(ctx context.Context, c *cli.Context, s *session) error {
	st, err := s.engine.Stats(ctx, c.String("space"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(s.out, st)
	}
	fmt.Fprintf(s.out, "space: %s\nchunks: %d\nconcepts: %d\nrelationships: %d\n",
		st.Space, st.Chunks, st.Concepts, st.Relationships)
	return nil
}

func reembedSpace(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if c.Int("batch-size") < 1 {
		return errors.New("batch-size must be positive")
	}

	res, err := s.engine.Reembed(ctx, space, newProgressMonitor(os.Stderr, progressInterval), reembed.WithBatchSize(c.Int("batch-size")))
	if err != nil {
		return fmt.Errorf("reembedding space %q: %w", space, err)
	}
	if res.Chunks > 0 {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(s.out, "reembedded %d chunk(s) in %v\n", res.Chunks, res.Duration.Round(time.Millisecond))
	return nil
}

func clearSpace(ctx context.Context, c *cli.Context, s *session) error {
	space := c.String("space")
	if err := s.engine.ClearSpace(ctx, space); err != nil {
		return err
	}
	if err := s.lib.clear(space); err != nil {
		return fmt.Errorf("removing files: %w", err)
	}
	fmt.Fprintf(s.out, "cleared space %q\n", space)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
