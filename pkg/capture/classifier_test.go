package capture_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillvault/quill/pkg/capture"
)

var _ = Describe("ShouldCapture", func() {
	It("accepts an explicit request to remember", func() {
		Expect(capture.ShouldCapture("Please remember this: deploys happen on Fridays")).To(BeTrue())
	})

	It("accepts a stated preference", func() {
		Expect(capture.ShouldCapture("I prefer tabs over spaces in Go projects")).To(BeTrue())
	})

	It("accepts a recorded decision", func() {
		Expect(capture.ShouldCapture("We decided to go with Postgres for the event store")).To(BeTrue())
	})

	It("accepts Chinese trigger phrases", func() {
		Expect(capture.ShouldCapture("记住我们的服务器在每周五晚上维护")).To(BeTrue())
	})

	It("rejects text without any trigger", func() {
		Expect(capture.ShouldCapture("The weather is quite nice today outside")).To(BeFalse())
	})

	It("rejects text under the minimum length despite a trigger", func() {
		Expect(capture.ShouldCapture("remember it")).To(BeFalse())
	})

	It("rejects text over the maximum length despite a trigger", func() {
		long := "remember this " + strings.Repeat("word ", 120)
		Expect(capture.ShouldCapture(long)).To(BeFalse())
	})

	It("rejects questions", func() {
		Expect(capture.ShouldCapture("Do you remember what we decided about the cache?")).To(BeFalse())
		Expect(capture.ShouldCapture("你还记得我们决定用哪个数据库吗？")).To(BeFalse())
	})

	It("rejects fenced code blocks regardless of triggers", func() {
		text := "remember this snippet\n```\nfunc main() {}\n```"
		Expect(capture.ShouldCapture(text)).To(BeFalse())
	})

	It("rejects markup", func() {
		Expect(capture.ShouldCapture("<div>remember this block of important text</div>")).To(BeFalse())
	})

	It("rejects list-shaped text", func() {
		Expect(capture.ShouldCapture("- remember the milk\n- remember the eggs")).To(BeFalse())
	})

	It("rejects assistant closing phrases", func() {
		Expect(capture.ShouldCapture("I always aim to be helpful, glad to help!")).To(BeFalse())
	})

	It("rejects recalled-memory echoes", func() {
		Expect(capture.ShouldCapture("Recalled memories: the user prefers dark mode")).To(BeFalse())
	})

	It("rejects emoji-heavy text", func() {
		Expect(capture.ShouldCapture("remember this party 🎉🎉🎊🎊 we always celebrate")).To(BeFalse())
	})
})

var _ = Describe("DetectCategory", func() {
	It("detects preferences", func() {
		Expect(capture.DetectCategory("I prefer dark mode in every editor")).
			To(Equal(capture.CategoryPreference))
	})

	It("detects project decisions", func() {
		Expect(capture.DetectCategory("We decided to ship the beta next month")).
			To(Equal(capture.CategoryProject))
	})

	It("detects personal facts", func() {
		Expect(capture.DetectCategory("My name is Ada and I live in Lyon")).
			To(Equal(capture.CategoryPersonal))
		Expect(capture.DetectCategory("reach me at ada@example.com whenever")).
			To(Equal(capture.CategoryPersonal))
	})

	It("prioritizes preference over personal when both match", func() {
		Expect(capture.DetectCategory("I prefer email at ada@example.com over chat")).
			To(Equal(capture.CategoryPreference))
	})

	It("falls back to other", func() {
		Expect(capture.DetectCategory("remember this for later please")).
			To(Equal(capture.CategoryOther))
	})

	It("categorizes independently of the capture decision", func() {
		text := "Do we prefer Postgres or MySQL?"
		Expect(capture.ShouldCapture(text)).To(BeFalse())
		Expect(capture.DetectCategory("I prefer Postgres here")).To(Equal(capture.CategoryPreference))
	})
})
