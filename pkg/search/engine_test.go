package search

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/chunk"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/lexical"
	"github.com/quillvault/quill/pkg/vector"
)

// stubEmbedder returns a fixed vector after an optional delay.
type stubEmbedder struct {
	err   error
	delay time.Duration
}

func (s *stubEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() uint { return 3 }

func (s *stubEmbedder) HealthCheck(_ context.Context) error { return nil }

func (s *stubEmbedder) Close() error { return nil }

// stubDriver serves canned hits for Search; the rest of the Driver surface
// is inert.
type stubDriver struct {
	hits []vector.Hit
	err  error
}

func (s *stubDriver) EnsureCollection(_ context.Context, _ uint) error { return nil }

func (s *stubDriver) DeleteBySource(_ context.Context, _ string) error { return nil }

func (s *stubDriver) Upsert(_ context.Context, _ []chunk.Passage, _ [][]float32) error { return nil }

func (s *stubDriver) BatchReplace(_ context.Context, _ string, _ []chunk.Passage, _ [][]float32) error {
	return nil
}

func (s *stubDriver) Search(_ context.Context, _ []float32, _ int, _ float32) ([]vector.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func (s *stubDriver) UpsertCaptured(_ context.Context, _ vector.CaptureRecord, _ []float32) error {
	return nil
}

func (s *stubDriver) ListCaptured(_ context.Context, _ string, _ int, _ string) (vector.CapturedPage, error) {
	return vector.CapturedPage{}, nil
}

func (s *stubDriver) DeleteCaptured(_ context.Context, _ string) error { return nil }

func (s *stubDriver) FindNearestCaptured(_ context.Context, _ []float32, _ float32) (vector.Nearest, error) {
	return vector.Nearest{}, nil
}

func (s *stubDriver) HealthCheck(_ context.Context) error { return nil }

func (s *stubDriver) Close() error { return nil }

func storedPassage(ix *lexical.Index, sourceID string, start, end int, text string) string {
	p := chunk.Passage{
		ID:          chunk.PassageID(sourceID, start, end),
		SourceID:    sourceID,
		StartLine:   start,
		EndLine:     end,
		Text:        text,
		ContentHash: chunk.HashText(text),
	}
	ExpectWithOffset(1, ix.ReplaceSource(sourceID, "", []chunk.Passage{p})).To(Succeed())
	return p.ID
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		ix     *lexical.Index
		g      *graph.Graph
		driver *stubDriver
		now    time.Time
	)

	newEngine := func(c Config) *Engine {
		c.Lexical = ix
		c.Graph = g
		if c.Logger == nil {
			c.Logger = zap.NewNop()
		}
		e, err := NewEngine(c)
		Expect(err).NotTo(HaveOccurred())
		e.now = func() time.Time { return now }
		return e
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		var err error
		ix, err = lexical.Open(filepath.Join(GinkgoT().TempDir(), "lexical.db"), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(ix.Close()).To(Succeed()) })

		g = graph.New(zap.NewNop())
		driver = &stubDriver{}
	})

	Describe("fusion", func() {
		It("combines vector and lexical scores with 0.7/0.3 weights", func() {
			// Two passages: the heavier one sets the lexical maximum, so the
			// lighter one normalizes to exactly 0.5.
			storedPassage(ix, "vault/heavy.md", 1, 10, "cache cache cache cache")
			x := storedPassage(ix, "vault/x.md", 1, 10, "cache cache filler")

			driver.hits = []vector.Hit{{
				ID: x, Score: 0.9, SourceID: "vault/x.md", StartLine: 1, EndLine: 10, Text: "cache cache filler",
			}}

			e := newEngine(Config{Vectors: driver, Embedder: &stubEmbedder{}})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Degraded).To(BeFalse())

			Expect(resp.Results).To(HaveLen(2))
			Expect(resp.Results[0].ID).To(Equal(x))
			Expect(resp.Results[0].Score).To(BeNumerically("~", 0.9*0.7+0.5*0.3, 1e-9))
			Expect(resp.Results[1].Score).To(BeNumerically("~", 0.3, 1e-9))
		})

		It("keeps vector-only hits with a zero lexical component", func() {
			driver.hits = []vector.Hit{{
				ID: "vault/v.md#1-5", Score: 0.8, SourceID: "vault/v.md", StartLine: 1, EndLine: 5, Text: "unrelated",
			}}

			e := newEngine(Config{Vectors: driver, Embedder: &stubEmbedder{}})
			resp, err := e.Search(ctx, "nomatch", Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Results).To(HaveLen(1))
			Expect(resp.Results[0].Score).To(BeNumerically("~", 0.8*0.7, 1e-9))
		})

		It("reweights to lexical-only when vector search fails", func() {
			storedPassage(ix, "vault/a.md", 1, 10, "cache eviction")
			driver.err = errors.New("connection refused")

			e := newEngine(Config{Vectors: driver, Embedder: &stubEmbedder{}})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Degraded).To(BeTrue())
			Expect(resp.Warning).NotTo(BeEmpty())
			Expect(resp.Results).To(HaveLen(1))
			// Fully-weighted lexical ranking, not 0.3-scaled.
			Expect(resp.Results[0].Score).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("runs lexical-only when no vector store is configured", func() {
			storedPassage(ix, "vault/a.md", 1, 10, "cache eviction")

			e := newEngine(Config{})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Degraded).To(BeFalse())
			Expect(resp.Results).To(HaveLen(1))
			Expect(resp.Results[0].Score).To(BeNumerically("~", 1.0, 1e-9))
		})
	})

	Describe("recency decay", func() {
		It("halves the decay term per half-life", func() {
			e := newEngine(Config{Vectors: driver, Embedder: &stubEmbedder{}, HalfLifeDays: 30})

			oneHalfLife := now.Add(-30 * 24 * time.Hour)
			twoHalfLives := now.Add(-60 * 24 * time.Hour)

			Expect(e.decay(now, oneHalfLife)).To(BeNumerically("~", 0.5, 1e-9))
			Expect(e.decay(now, twoHalfLives)).To(BeNumerically("~", 0.25, 1e-9))
			Expect(e.decay(now, now)).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("blends decay into captured results only", func() {
			capturedAt := now.Add(-30 * 24 * time.Hour)
			driver.hits = []vector.Hit{
				{
					ID: "captured/m1#1-1", Score: 0.8, SourceID: "captured/m1",
					Text: "old memory", Captured: true, CapturedAt: &capturedAt,
				},
				{
					ID: "vault/n.md#1-5", Score: 0.8, SourceID: "vault/n.md", Text: "note",
				},
			}

			e := newEngine(Config{
				Vectors: driver, Embedder: &stubEmbedder{},
				RecencyWeight: 0.2, HalfLifeDays: 30,
			})
			resp, err := e.Search(ctx, "nomatch", Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Results).To(HaveLen(2))

			fused := 0.8 * 0.7
			var capturedScore, plainScore float64
			for _, r := range resp.Results {
				if r.Provenance == ProvenanceCaptured {
					capturedScore = r.Score
				} else {
					plainScore = r.Score
				}
			}
			Expect(plainScore).To(BeNumerically("~", fused, 1e-9))
			Expect(capturedScore).To(BeNumerically("~", fused*0.8+0.5*0.2, 1e-9))
		})
	})

	Describe("graph enrichment", func() {
		It("attaches at most three neighbors, links before backlinks", func() {
			g.UpdateSource("vault/a.md", "[[vault/b.md]] [[vault/c.md]] [[vault/d.md]] [[vault/e.md]]")
			storedPassage(ix, "vault/a.md", 1, 10, "cache eviction")

			e := newEngine(Config{})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Results).To(HaveLen(1))
			Expect(resp.Results[0].RelatedSources).To(Equal([]string{
				"vault/b.md", "vault/c.md", "vault/d.md",
			}))
		})

		It("does not let neighbors affect ranking", func() {
			g.UpdateSource("vault/linked.md", "[[vault/other.md]]")
			storedPassage(ix, "vault/linked.md", 1, 10, "cache")
			Expect(ix.ReplaceSource("vault/plain.md", "", []chunk.Passage{{
				ID: "vault/plain.md#1-10", SourceID: "vault/plain.md",
				StartLine: 1, EndLine: 10, Text: "cache", ContentHash: chunk.HashText("cache"),
			}})).To(Succeed())

			e := newEngine(Config{})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.Results).To(HaveLen(2))
			Expect(resp.Results[0].Score).To(BeNumerically("~", resp.Results[1].Score, 1e-9))
		})
	})

	Describe("provenance", func() {
		It("derives it from the source id prefix", func() {
			Expect(provenanceOf("vault/notes/a.md")).To(Equal(ProvenanceVault))
			Expect(provenanceOf("captured/4f6b")).To(Equal(ProvenanceCaptured))
			Expect(provenanceOf("scratch/todo.md")).To(Equal(ProvenanceWorkspace))
		})
	})

	Describe("truncation and defaults", func() {
		It("truncates to max results after sorting", func() {
			for i := 0; i < 8; i++ {
				src := filepath.Join("vault", string(rune('a'+i))+".md")
				storedPassage(ix, src, 1, 10, "cache")
			}

			e := newEngine(Config{})
			resp, err := e.Search(ctx, "cache", Options{MaxResults: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Results).To(HaveLen(3))
		})

		It("applies the default max results", func() {
			for i := 0; i < 8; i++ {
				src := filepath.Join("vault", string(rune('a'+i))+".md")
				storedPassage(ix, src, 1, 10, "cache")
			}

			e := newEngine(Config{})
			resp, err := e.Search(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Results).To(HaveLen(DefaultMaxResults))
		})
	})

	Describe("AutoRecall", func() {
		It("returns results when the query finishes in time", func() {
			storedPassage(ix, "vault/a.md", 1, 10, "cache eviction")

			e := newEngine(Config{RecallTimeout: time.Second})
			resp, err := e.AutoRecall(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Results).To(HaveLen(1))
		})

		It("returns no results on timeout instead of blocking", func() {
			storedPassage(ix, "vault/a.md", 1, 10, "cache eviction")

			e := newEngine(Config{
				Vectors:       driver,
				Embedder:      &stubEmbedder{delay: 500 * time.Millisecond},
				RecallTimeout: 30 * time.Millisecond,
			})

			start := time.Now()
			resp, err := e.AutoRecall(ctx, "cache", Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Results).To(BeEmpty())
			Expect(time.Since(start)).To(BeNumerically("<", 300*time.Millisecond))
		})
	})
})
