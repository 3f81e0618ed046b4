package capture_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quillvault/quill/pkg/capture"
)

var _ = Describe("Limiter", func() {
	var base time.Time

	BeforeEach(func() {
		base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	It("allows, rejects, then allows again after the window elapses", func() {
		l := capture.NewLimiter(time.Minute, 1)

		Expect(l.Allow("conv", base)).To(BeTrue())
		Expect(l.Allow("conv", base.Add(30*time.Second))).To(BeFalse())
		Expect(l.Allow("conv", base.Add(61*time.Second))).To(BeTrue())
	})

	It("does not record rejected events", func() {
		l := capture.NewLimiter(time.Minute, 1)

		Expect(l.Allow("conv", base)).To(BeTrue())
		// Rejections must not extend the window.
		Expect(l.Allow("conv", base.Add(30*time.Second))).To(BeFalse())
		Expect(l.Allow("conv", base.Add(59*time.Second))).To(BeFalse())
		Expect(l.Allow("conv", base.Add(61*time.Second))).To(BeTrue())
	})

	It("tracks keys independently", func() {
		l := capture.NewLimiter(time.Minute, 1)

		Expect(l.Allow("a", base)).To(BeTrue())
		Expect(l.Allow("b", base)).To(BeTrue())
		Expect(l.Allow("a", base.Add(time.Second))).To(BeFalse())
	})

	It("honors maxPerWindow greater than one", func() {
		l := capture.NewLimiter(time.Minute, 3)

		for i := 0; i < 3; i++ {
			Expect(l.Allow("conv", base.Add(time.Duration(i)*time.Second))).To(BeTrue())
		}
		Expect(l.Allow("conv", base.Add(10*time.Second))).To(BeFalse())
	})

	It("is safe under concurrent appends", func() {
		l := capture.NewLimiter(time.Minute, 1000)

		var wg sync.WaitGroup
		allowed := make(chan bool, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				allowed <- l.Allow("conv", time.Now())
			}()
		}
		wg.Wait()
		close(allowed)

		n := 0
		for ok := range allowed {
			if ok {
				n++
			}
		}
		Expect(n).To(Equal(100))
	})

	It("prunes expired state", func() {
		l := capture.NewLimiter(time.Minute, 1)

		Expect(l.Allow("conv", base)).To(BeTrue())
		l.Prune(base.Add(2 * time.Minute))

		Expect(l.Allow("conv", base.Add(2*time.Minute))).To(BeTrue())
	})
})
