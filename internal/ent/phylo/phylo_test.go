package phylo_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/phylomb/evepipe/internal/ent/phylo"
)

const primates = "((Homo_sapiens:0.1,Pan_troglodytes:0.12):0.05,Macaca_mulatta:0.3);"

var _ = Describe("ParseNewick", func() {
	It("parses tips, nesting and branch lengths", func() {
		tree, err := phylo.ParseNewick(primates)
		Expect(err).ToNot(HaveOccurred())
		Expect(tree.Tips()).To(Equal([]string{
			"Homo_sapiens", "Macaca_mulatta", "Pan_troglodytes",
		}))
		Expect(tree.Root.Children).To(HaveLen(2))
		Expect(tree.Root.Children[1].Length).To(Equal(0.3))
	})

	It("parses trees without branch lengths", func() {
		tree, err := phylo.ParseNewick("(A,(B,C));")
		Expect(err).ToNot(HaveOccurred())
		Expect(tree.Tips()).To(Equal([]string{"A", "B", "C"}))
	})

	It("rejects unbalanced parentheses", func() {
		_, err := phylo.ParseNewick("((A,B;")
		Expect(err).To(HaveOccurred())
	})

	It("rejects trailing garbage", func() {
		_, err := phylo.ParseNewick("(A,B);extra")
		Expect(err).To(HaveOccurred())
	})

	It("rejects unnamed tips", func() {
		_, err := phylo.ParseNewick("(A,);")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Tree", func() {
	Describe("Validate", func() {
		var tree *phylo.Tree

		BeforeEach(func() {
			var err error
			tree, err = phylo.ParseNewick(primates)
			Expect(err).ToNot(HaveOccurred())
		})

		It("accepts species that cover the tips", func() {
			species := []string{
				"Homo_sapiens", "Homo_sapiens",
				"Pan_troglodytes", "Macaca_mulatta",
			}
			Expect(tree.Validate(species)).To(Succeed())
		})

		It("rejects a species missing from the tree", func() {
			err := tree.Validate([]string{"Homo_sapiens", "Mus_musculus"})
			Expect(err).To(MatchError(ContainSubstring("Mus_musculus")))
		})

		It("rejects a tip with no samples", func() {
			err := tree.Validate([]string{"Homo_sapiens", "Pan_troglodytes"})
			Expect(err).To(MatchError(ContainSubstring("Macaca_mulatta")))
		})
	})

	Describe("Newick", func() {
		It("round-trips through the parser", func() {
			tree, err := phylo.ParseNewick(primates)
			Expect(err).ToNot(HaveOccurred())
			again, err := phylo.ParseNewick(tree.Newick())
			Expect(err).ToNot(HaveOccurred())
			Expect(again.Tips()).To(Equal(tree.Tips()))
			Expect(again.Newick()).To(Equal(tree.Newick()))
		})
	})
})
