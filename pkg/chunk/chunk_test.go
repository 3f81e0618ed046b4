package chunk_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillvault/quill/pkg/chunk"
)

// noteOfLines builds a document with one numbered sentence per line, each
// line carrying wordsPerLine words.
func noteOfLines(lineCount, wordsPerLine int) string {
	var b strings.Builder
	for i := 1; i <= lineCount; i++ {
		words := make([]string, wordsPerLine)
		for w := range words {
			words[w] = fmt.Sprintf("line%dword%d", i, w)
		}
		b.WriteString(strings.Join(words, " "))
		if i < lineCount {
			b.WriteString("\n")
		}
	}
	return b.String()
}

var _ = Describe("Chunk", func() {
	Describe("empty and whitespace input", func() {
		It("yields no passages for empty text", func() {
			Expect(chunk.Chunk("", chunk.Options{})).To(BeEmpty())
		})

		It("yields no passages for whitespace-only text", func() {
			Expect(chunk.Chunk(" \n\t\n  \n", chunk.Options{})).To(BeEmpty())
		})
	})

	Describe("small input", func() {
		It("returns a single passage covering the whole text", func() {
			text := "first line\nsecond line\nthird line"
			passages := chunk.Chunk(text, chunk.Options{})

			Expect(passages).To(HaveLen(1))
			Expect(passages[0].StartLine).To(Equal(1))
			Expect(passages[0].EndLine).To(Equal(3))
			Expect(passages[0].Text).To(Equal(text))
		})
	})

	Describe("line coverage", func() {
		It("covers every line with no gaps between consecutive passages", func() {
			text := noteOfLines(120, 10)
			passages := chunk.Chunk(text, chunk.Options{TargetWords: 100, OverlapWords: 20})

			Expect(len(passages)).To(BeNumerically(">", 1))
			Expect(passages[0].StartLine).To(Equal(1))
			Expect(passages[len(passages)-1].EndLine).To(Equal(120))

			for i := 1; i < len(passages); i++ {
				prev, cur := passages[i-1], passages[i]
				Expect(cur.StartLine).To(BeNumerically("<=", prev.EndLine+1),
					"passages must be contiguous or overlapping")
				Expect(cur.StartLine).To(BeNumerically(">", prev.StartLine))
			}
		})

		It("overlaps consecutive passages when overlap is configured", func() {
			text := noteOfLines(120, 10)
			passages := chunk.Chunk(text, chunk.Options{TargetWords: 100, OverlapWords: 20})

			for i := 1; i < len(passages); i++ {
				Expect(passages[i].StartLine).To(BeNumerically("<=", passages[i-1].EndLine))
			}
		})

		It("keeps passages disjoint when overlap is zero", func() {
			text := noteOfLines(120, 10)
			passages := chunk.Chunk(text, chunk.Options{TargetWords: 100})

			for i := 1; i < len(passages); i++ {
				Expect(passages[i].StartLine).To(Equal(passages[i-1].EndLine + 1))
			}
		})
	})

	Describe("long lines", func() {
		It("splits an oversized line without changing line numbering", func() {
			long := strings.Repeat("x", chunk.MaxLineChars*2+10)
			text := "before\n" + long + "\nafter"
			passages := chunk.Chunk(text, chunk.Options{})

			Expect(passages).To(HaveLen(1))
			Expect(passages[0].StartLine).To(Equal(1))
			Expect(passages[0].EndLine).To(Equal(3))
			Expect(passages[0].Text).To(ContainSubstring("before"))
			Expect(passages[0].Text).To(ContainSubstring("after"))
		})

		It("keeps ids unique when one line spans several passages", func() {
			// 1200 words on one logical line: hard-splitting produces multiple
			// passages that all cover line 1.
			long := strings.TrimSpace(strings.Repeat("word ", 1200))
			passages := chunk.Chunk(long, chunk.Options{TargetWords: 400})

			Expect(len(passages)).To(BeNumerically(">", 1))

			chunk.Finalize("vault/big.md", passages)

			ids := make(map[string]struct{})
			for _, p := range passages {
				Expect(p.StartLine).To(Equal(1))
				Expect(p.EndLine).To(Equal(1))
				Expect(ids).NotTo(HaveKey(p.ID))
				ids[p.ID] = struct{}{}
			}
			Expect(passages[0].ID).To(Equal("vault/big.md#1-1"))

			again := chunk.Chunk(long, chunk.Options{TargetWords: 400})
			chunk.Finalize("vault/big.md", again)
			Expect(again).To(Equal(passages))
		})
	})

	Describe("Finalize", func() {
		It("assigns deterministic ids and hashes", func() {
			text := noteOfLines(120, 10)

			first := chunk.Chunk(text, chunk.Options{TargetWords: 100, OverlapWords: 20})
			chunk.Finalize("vault/notes/a.md", first)

			second := chunk.Chunk(text, chunk.Options{TargetWords: 100, OverlapWords: 20})
			chunk.Finalize("vault/notes/a.md", second)

			Expect(second).To(Equal(first))
			for _, p := range first {
				Expect(p.ID).To(Equal(fmt.Sprintf("vault/notes/a.md#%d-%d", p.StartLine, p.EndLine)))
				Expect(p.SourceID).To(Equal("vault/notes/a.md"))
				Expect(p.ContentHash).To(HaveLen(64))
			}
		})

		It("derives the id from source and line range", func() {
			Expect(chunk.PassageID("vault/a.md", 1, 42)).To(Equal("vault/a.md#1-42"))
		})
	})

	Describe("HashText", func() {
		It("is stable for identical text and differs for different text", func() {
			Expect(chunk.HashText("alpha")).To(Equal(chunk.HashText("alpha")))
			Expect(chunk.HashText("alpha")).NotTo(Equal(chunk.HashText("beta")))
		})
	})
})
