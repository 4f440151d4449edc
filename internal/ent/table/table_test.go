package table_test

import (
	"sort"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/phylomb/evepipe/internal/ent/table"
)

func counts() table.Table {
	t, err := table.New(
		[]string{"SampleID", "ASV1", "ASV2"},
		[][]string{
			{"S1", "5", "0"},
			{"S2", "10", "20"},
		},
	)
	Expect(err).ToNot(HaveOccurred())
	return t
}

func metadata() table.Table {
	t, err := table.New(
		[]string{"SampleID", "Condition"},
		[][]string{
			{"S1", "Control"},
			{"S2", "Disease"},
		},
	)
	Expect(err).ToNot(HaveOccurred())
	return t
}

var countRoles = table.Roles{
	ID:        "SampleID",
	Abundance: []string{"ASV1", "ASV2"},
}

var _ = Describe("Table", func() {
	Describe("New", func() {
		It("rejects duplicate column names", func() {
			_, err := table.New(
				[]string{"SampleID", "SampleID"},
				nil,
			)
			Expect(err).To(HaveOccurred())
		})

		It("rejects ragged rows", func() {
			_, err := table.New(
				[]string{"SampleID", "ASV1"},
				[][]string{{"S1"}},
			)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		It("reports a missing role column before any processing", func() {
			t := counts()
			err := t.Validate(table.Roles{ID: "Sample"})
			Expect(err).To(MatchError(ContainSubstring("Sample")))
		})
	})

	Describe("Merge", func() {
		It("joins matching samples without losing metadata", func() {
			merged, rep, err := table.Merge(counts(), metadata(), "SampleID")
			Expect(err).ToNot(HaveOccurred())
			Expect(merged.Rows).To(HaveLen(2))
			Expect(rep.Matched).To(Equal(2))
			Expect(rep.Unmatched()).To(BeEmpty())

			condIdx := merged.Col("Condition")
			Expect(condIdx).To(BeNumerically(">=", 0))
			for _, row := range merged.Rows {
				Expect(row[condIdx]).ToNot(BeEmpty())
			}
		})

		It("enumerates the symmetric difference of the key sets", func() {
			left, err := table.New(
				[]string{"SampleID", "ASV1"},
				[][]string{{"S1", "1"}, {"S2", "2"}, {"S3", "3"}},
			)
			Expect(err).ToNot(HaveOccurred())
			right, err := table.New(
				[]string{"SampleID", "Condition"},
				[][]string{{"S2", "Control"}, {"S4", "Disease"}},
			)
			Expect(err).ToNot(HaveOccurred())

			merged, rep, err := table.Merge(left, right, "SampleID")
			Expect(err).ToNot(HaveOccurred())

			// independent symmetric difference
			want := []string{"S1", "S3", "S4"}
			got := rep.Unmatched()
			sort.Strings(got)
			Expect(got).To(Equal(want))

			// outer join: every sample of either side has a row
			Expect(merged.Rows).To(HaveLen(4))
		})

		It("surfaces duplicated keys instead of collapsing them", func() {
			left, err := table.New(
				[]string{"SampleID", "ASV1"},
				[][]string{{"S1", "1"}, {"S1", "2"}},
			)
			Expect(err).ToNot(HaveOccurred())

			merged, rep, err := table.Merge(left, metadata(), "SampleID")
			Expect(err).ToNot(HaveOccurred())
			Expect(rep.DupsLeft).To(Equal([]string{"S1"}))

			// both duplicated rows survive the merge
			Expect(merged.Rows).To(HaveLen(3))
		})

		It("supports dropping unmatched rows post hoc", func() {
			left, err := table.New(
				[]string{"SampleID", "ASV1"},
				[][]string{{"S1", "1"}, {"S2", "2"}},
			)
			Expect(err).ToNot(HaveOccurred())
			right, err := table.New(
				[]string{"SampleID", "Condition"},
				[][]string{{"S2", "Control"}},
			)
			Expect(err).ToNot(HaveOccurred())

			merged, rep, err := table.Merge(left, right, "SampleID")
			Expect(err).ToNot(HaveOccurred())
			kept, err := table.DropUnmatched(merged, "SampleID", rep)
			Expect(err).ToNot(HaveOccurred())
			Expect(kept.Rows).To(HaveLen(1))
			Expect(kept.Rows[0][0]).To(Equal("S2"))
		})
	})

	Describe("FilterDepth", func() {
		It("keeps only rows whose sum exceeds the threshold", func() {
			res, err := table.FilterDepth(counts(), countRoles, 10)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Kept.Rows).To(HaveLen(1))
			Expect(res.Kept.Rows[0][0]).To(Equal("S2"))
			Expect(res.Dropped).To(Equal([]string{"S1"}))
			Expect(res.Depths["S1"]).To(Equal(5.0))
			Expect(res.Depths["S2"]).To(Equal(30.0))
		})

		It("excludes a row whose sum equals the threshold", func() {
			res, err := table.FilterDepth(counts(), countRoles, 30)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Kept.Rows).To(BeEmpty())
			Expect(res.Excluded).To(Equal(2))
		})

		It("retains nothing when all sums fall below the threshold", func() {
			res, err := table.FilterDepth(counts(), countRoles, 5141)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Kept.Rows).To(BeEmpty())
		})

		It("is monotonic in the threshold", func() {
			lo, err := table.FilterDepth(counts(), countRoles, 4)
			Expect(err).ToNot(HaveOccurred())
			hi, err := table.FilterDepth(counts(), countRoles, 6)
			Expect(err).ToNot(HaveOccurred())
			Expect(len(hi.Kept.Rows)).To(BeNumerically("<=", len(lo.Kept.Rows)))
		})

		It("treats empty cells of kept unmatched rows as zero", func() {
			t, err := table.New(
				[]string{"SampleID", "ASV1", "ASV2"},
				[][]string{{"S9", "", ""}},
			)
			Expect(err).ToNot(HaveOccurred())
			res, err := table.FilterDepth(t, countRoles, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Kept.Rows).To(BeEmpty())
			Expect(res.Depths["S9"]).To(Equal(0.0))
		})

		It("rejects non-numeric counts as a schema violation", func() {
			t, err := table.New(
				[]string{"SampleID", "ASV1", "ASV2"},
				[][]string{{"S1", "five", "0"}},
			)
			Expect(err).ToNot(HaveOccurred())
			_, err = table.FilterDepth(t, countRoles, 0)
			Expect(err).To(MatchError(ContainSubstring("not numeric")))
		})
	})

	Describe("Dedup", func() {
		dups := func() table.Table {
			t, err := table.New(
				[]string{"Key", "Value"},
				[][]string{
					{"a", "1"},
					{"b", "2"},
					{"a", "3"},
				},
			)
			Expect(err).ToNot(HaveOccurred())
			return t
		}

		It("keeps the first occurrence under first-wins", func() {
			res, rep, err := table.Dedup(dups(), "Key", table.DedupFirst)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Rows).To(Equal([][]string{
				{"a", "1"},
				{"b", "2"},
			}))
			Expect(rep.Duplicates).To(HaveKeyWithValue("a", 2))
			Expect(rep.Removed).To(Equal(1))
		})

		It("keeps the last occurrence under last-wins", func() {
			res, _, err := table.Dedup(dups(), "Key", table.DedupLast)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Rows).To(Equal([][]string{
				{"b", "2"},
				{"a", "3"},
			}))
		})

		It("is idempotent", func() {
			once, _, err := table.Dedup(dups(), "Key", table.DedupFirst)
			Expect(err).ToNot(HaveOccurred())
			twice, rep, err := table.Dedup(once, "Key", table.DedupFirst)
			Expect(err).ToNot(HaveOccurred())
			Expect(twice.Rows).To(Equal(once.Rows))
			Expect(rep.Removed).To(BeZero())
		})

		It("rejects an unknown policy", func() {
			_, _, err := table.Dedup(dups(), "Key", "merge")
			Expect(err).To(MatchError(ContainSubstring("policy")))
		})
	})

	Describe("CompositeKey", func() {
		It("derives a genotype+sample key column", func() {
			t, err := table.New(
				[]string{"SampleID", "Genotype"},
				[][]string{{"S1", "wt"}},
			)
			Expect(err).ToNot(HaveOccurred())
			res, err := table.CompositeKey(t, "GenotypeSampleID", ".", "Genotype", "SampleID")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Header).To(Equal([]string{"SampleID", "Genotype", "GenotypeSampleID"}))
			Expect(res.Rows[0][2]).To(Equal("wt.S1"))
		})

		It("refuses to shadow an existing column", func() {
			t, err := table.New(
				[]string{"SampleID", "Genotype"},
				[][]string{{"S1", "wt"}},
			)
			Expect(err).ToNot(HaveOccurred())
			_, err = table.CompositeKey(t, "Genotype", ".", "SampleID")
			Expect(err).To(HaveOccurred())
		})
	})
})
