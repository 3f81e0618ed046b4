package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/chunk"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/index"
	"github.com/quillvault/quill/pkg/lexical"
	"github.com/quillvault/quill/pkg/vector"
)

// memEmbedder hands out constant vectors, optionally failing for texts
// containing a marker.
type memEmbedder struct {
	failOn string
}

func (m *memEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.failOn != "" && text == m.failOn {
		return nil, errors.New("embed refused")
	}
	return []float32{1, 2, 3}, nil
}

func (m *memEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *memEmbedder) Dimensions() uint { return 3 }

func (m *memEmbedder) HealthCheck(_ context.Context) error { return nil }

func (m *memEmbedder) Close() error { return nil }

// memDriver keeps passages per source in memory, mimicking the store's
// replace semantics.
type memDriver struct {
	passages map[string][]chunk.Passage
	fail     bool
}

func newMemDriver() *memDriver {
	return &memDriver{passages: make(map[string][]chunk.Passage)}
}

func (m *memDriver) EnsureCollection(_ context.Context, _ uint) error { return nil }

func (m *memDriver) DeleteBySource(_ context.Context, sourceID string) error {
	if m.fail {
		return errors.New("store unreachable")
	}
	delete(m.passages, sourceID)
	return nil
}

func (m *memDriver) Upsert(_ context.Context, passages []chunk.Passage, _ [][]float32) error {
	for _, p := range passages {
		m.passages[p.SourceID] = append(m.passages[p.SourceID], p)
	}
	return nil
}

func (m *memDriver) BatchReplace(_ context.Context, sourceID string, passages []chunk.Passage, _ [][]float32) error {
	if m.fail {
		return errors.New("store unreachable")
	}
	m.passages[sourceID] = append([]chunk.Passage(nil), passages...)
	return nil
}

func (m *memDriver) Search(_ context.Context, _ []float32, _ int, _ float32) ([]vector.Hit, error) {
	return nil, nil
}

func (m *memDriver) UpsertCaptured(_ context.Context, _ vector.CaptureRecord, _ []float32) error {
	return nil
}

func (m *memDriver) ListCaptured(_ context.Context, _ string, _ int, _ string) (vector.CapturedPage, error) {
	return vector.CapturedPage{}, nil
}

func (m *memDriver) DeleteCaptured(_ context.Context, _ string) error { return nil }

func (m *memDriver) FindNearestCaptured(_ context.Context, _ []float32, _ float32) (vector.Nearest, error) {
	return vector.Nearest{}, nil
}

func (m *memDriver) HealthCheck(_ context.Context) error { return nil }

func (m *memDriver) Close() error { return nil }

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		ix       *lexical.Index
		g        *graph.Graph
		driver   *memDriver
		embedder *memEmbedder
		p        *index.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		ix, err = lexical.Open(filepath.Join(GinkgoT().TempDir(), "lexical.db"), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(ix.Close()).To(Succeed()) })

		g = graph.New(zap.NewNop())
		driver = newMemDriver()
		embedder = &memEmbedder{}

		p, err = index.NewPipeline(index.Config{
			Lexical:  ix,
			Graph:    g,
			Vectors:  driver,
			Embedder: embedder,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("IndexSource", func() {
		It("updates all three structures", func() {
			n, err := p.IndexSource(ctx, "vault/a.md", "see [[vault/b.md]] for the cache notes")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			Expect(ix.CountPassages()).To(Equal(1))
			Expect(g.Related("vault/a.md").Links).To(Equal([]string{"vault/b.md"}))
			Expect(driver.passages["vault/a.md"]).To(HaveLen(1))
		})

		It("touches nothing for whitespace-only text", func() {
			_, err := p.IndexSource(ctx, "vault/a.md", "prior content worth keeping")
			Expect(err).NotTo(HaveOccurred())

			n, err := p.IndexSource(ctx, "vault/a.md", "   \n\t\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			// The earlier passages survive a transient empty read.
			Expect(ix.CountPassages()).To(Equal(1))
			Expect(driver.passages["vault/a.md"]).To(HaveLen(1))
		})

		It("is idempotent for unchanged input", func() {
			text := "stable content with a [[vault/b.md]] link"

			_, err := p.IndexSource(ctx, "vault/a.md", text)
			Expect(err).NotTo(HaveOccurred())
			first, err := ix.PassageIDs("vault/a.md")
			Expect(err).NotTo(HaveOccurred())

			_, err = p.IndexSource(ctx, "vault/a.md", text)
			Expect(err).NotTo(HaveOccurred())
			second, err := ix.PassageIDs("vault/a.md")
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(ix.CountPassages()).To(Equal(len(first)))
			Expect(g.Related("vault/b.md").Backlinks).To(Equal([]string{"vault/a.md"}))
		})

		It("indexes a document that is one very long line", func() {
			long := strings.TrimSpace(strings.Repeat("word ", 1200))

			n, err := p.IndexSource(ctx, "vault/big.md", long)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">", 1))

			Expect(ix.CountPassages()).To(Equal(n))
			Expect(driver.passages["vault/big.md"]).To(HaveLen(n))
		})

		It("keeps local indices updated when the vector store fails", func() {
			driver.fail = true

			n, err := p.IndexSource(ctx, "vault/a.md", "content the store never saw")
			Expect(err).To(HaveOccurred())
			Expect(n).To(Equal(1))

			Expect(ix.CountPassages()).To(Equal(1))
		})
	})

	Describe("IndexTree", func() {
		var root string

		BeforeEach(func() {
			root = GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(root, "sub"), 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, "a.md"), []byte("alpha note"), 0o644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, "sub", "b.md"), []byte("beta note"), 0o644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, "c.txt"), []byte("gamma note"), 0o644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, "skip.png"), []byte{0xff}, 0o644)).To(Succeed())
		})

		It("indexes eligible files with prefixed source ids", func() {
			n, err := p.IndexTree(ctx, root, "vault")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			Expect(ix.Sources()).To(Equal(map[string]struct{}{
				"vault/a.md":     {},
				"vault/sub/b.md": {},
				"vault/c.txt":    {},
			}))
		})

		It("continues past per-file embedding failures", func() {
			embedder.failOn = "beta note"

			n, err := p.IndexTree(ctx, root, "vault")
			Expect(err).NotTo(HaveOccurred())

			// The failing file still counts locally and its siblings reach
			// the vector store.
			Expect(n).To(Equal(3))
			Expect(driver.passages).To(HaveKey("vault/a.md"))
			Expect(driver.passages).To(HaveKey("vault/c.txt"))
			Expect(driver.passages).NotTo(HaveKey("vault/sub/b.md"))
		})

		It("skips hidden directories", func() {
			Expect(os.MkdirAll(filepath.Join(root, ".obsidian"), 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, ".obsidian", "h.md"), []byte("hidden"), 0o644)).To(Succeed())

			_, err := p.IndexTree(ctx, root, "vault")
			Expect(err).NotTo(HaveOccurred())
			Expect(ix.Sources()).NotTo(HaveKey("vault/.obsidian/h.md"))
		})
	})

	Describe("DeleteSource", func() {
		It("retracts the source from every structure", func() {
			_, err := p.IndexSource(ctx, "vault/a.md", "linked to [[vault/b.md]] here")
			Expect(err).NotTo(HaveOccurred())

			Expect(p.DeleteSource(ctx, "vault/a.md")).To(Succeed())

			Expect(ix.CountPassages()).To(BeZero())
			Expect(g.Related("vault/b.md").Backlinks).To(BeEmpty())
			Expect(driver.passages).NotTo(HaveKey("vault/a.md"))
		})
	})
})
