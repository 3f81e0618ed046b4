package graph_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/graph"
)

var _ = Describe("Persistence", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("round-trips the graph through Save and Load", func() {
		g := graph.New(zap.NewNop())
		g.UpdateSource("vault/a.md", "[[vault/b.md]] [[vault/c.md]]")
		g.UpdateSource("vault/b.md", "[[vault/a.md]]")

		path := filepath.Join(dir, "graph.json")
		Expect(g.Save(path)).To(Succeed())

		loaded := graph.Load(path, zap.NewNop())
		Expect(loaded.Len()).To(Equal(g.Len()))
		Expect(loaded.Related("vault/a.md")).To(Equal(g.Related("vault/a.md")))
		Expect(loaded.Related("vault/b.md")).To(Equal(g.Related("vault/b.md")))
		Expect(loaded.Orphans()).To(Equal(g.Orphans()))
	})

	It("creates parent directories on save", func() {
		g := graph.New(zap.NewNop())
		g.UpdateSource("vault/a.md", "text")

		path := filepath.Join(dir, "nested", "state", "graph.json")
		Expect(g.Save(path)).To(Succeed())
		Expect(path).To(BeAnExistingFile())
	})

	It("starts empty when the file is missing", func() {
		loaded := graph.Load(filepath.Join(dir, "missing.json"), zap.NewNop())
		Expect(loaded.Len()).To(BeZero())
	})

	It("starts empty when the file is corrupt", func() {
		path := filepath.Join(dir, "graph.json")
		Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

		loaded := graph.Load(path, zap.NewNop())
		Expect(loaded.Len()).To(BeZero())
	})
})
