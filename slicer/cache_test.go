package slicer_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chaintrace/chaintrace/model"
	"github.com/chaintrace/chaintrace/slicer"
	"github.com/chaintrace/chaintrace/testutils"
)

var _ = Describe("Cache", func() {
	It("computes without caching for a nil receiver", func() {
		fn := testutils.LinearTaintFunction()
		testutils.Bind(fn)

		var cache *slicer.Cache
		graph, reach, err := cache.Analysis(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(graph).NotTo(BeNil())
		Expect(reach).NotTo(BeNil())
	})

	It("memoizes per function identity", func() {
		fn := testutils.LinearTaintFunction()
		testutils.Bind(fn)

		cache := slicer.NewCache()
		g1, r1, err := cache.Analysis(fn)
		Expect(err).NotTo(HaveOccurred())

		g2, r2, err := cache.Analysis(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(g2).To(BeIdenticalTo(g1))
		Expect(r2).To(BeIdenticalTo(r1))
	})

	It("keeps distinct functions separate", func() {
		a := testutils.LinearTaintFunction()
		b := testutils.DiamondFunction()
		testutils.Bind(a, b)

		cache := slicer.NewCache()
		ga, _, err := cache.Analysis(a)
		Expect(err).NotTo(HaveOccurred())
		gb, _, err := cache.Analysis(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(ga).NotTo(BeIdenticalTo(gb))
	})

	It("propagates malformed-function errors", func() {
		decl := &model.Function{Name: "system", Declared: true}

		cache := slicer.NewCache()
		_, _, err := cache.Analysis(decl)
		Expect(err).To(MatchError(model.ErrMalformedFunction))
	})

	It("is concurrency-safe and computes once", func() {
		fn := testutils.LoopFunction()
		testutils.Bind(fn)

		cache := slicer.NewCache()
		const workers = 12
		graphs := make([]any, workers)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				g, _, err := cache.Analysis(fn)
				Expect(err).NotTo(HaveOccurred())
				graphs[idx] = g
			}(i)
		}
		wg.Wait()

		for i := 1; i < workers; i++ {
			Expect(graphs[i]).To(BeIdenticalTo(graphs[0]))
		}
	})
})
