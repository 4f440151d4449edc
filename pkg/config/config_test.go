package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/phylomb/evepipe/pkg/config"
)

var _ = Describe("Config", func() {
	Describe("New", func() {
		It("generates an instance with defaults", func() {
			cfg := config.New()
			Expect(cfg.DepthThreshold).To(Equal(5141))
			Expect(cfg.ConfThreshold).To(Equal(0.97))
			Expect(cfg.PValThreshold).To(Equal(0.1))
			Expect(cfg.DedupPolicy).To(Equal("first"))
			Expect(cfg.JoinPolicy).To(Equal("keep"))
			Expect(cfg.Pseudocount).To(Equal(1.0))
			Expect(cfg.JobsNum).To(Equal(4))
		})

		It("uses options for setup", func() {
			cfg := config.New(getOpts()...)
			Expect(cfg.DataDir).To(Equal("/tmp/evepipe-data"))
			Expect(cfg.WorkDir).To(Equal("/tmp/evepipe"))
			Expect(cfg.DepthThreshold).To(Equal(1000))
			Expect(cfg.DedupPolicy).To(Equal("last"))
			Expect(cfg.JoinPolicy).To(Equal("drop"))
			Expect(cfg.Pseudocount).To(Equal(0.5))
			Expect(cfg.EveCmd).To(Equal("Rscript eve.R"))
			Expect(cfg.JobsNum).To(Equal(8))
		})

		It("derives the label store dir from the work dir", func() {
			cfg := config.New(config.OptWorkDir("/tmp/evepipe"))
			Expect(cfg.LabelKVDir).To(Equal(filepath.Join("/tmp/evepipe", "labels")))
		})

		It("expands a leading tilde in directory paths", func() {
			home, err := os.UserHomeDir()
			Expect(err).ToNot(HaveOccurred())

			cfg := config.New(
				config.OptDataDir("~/data"),
				config.OptWorkDir("~/.cache/evepipe"),
			)
			Expect(cfg.DataDir).To(Equal(filepath.Join(home, "data")))
			Expect(cfg.WorkDir).To(Equal(filepath.Join(home, ".cache", "evepipe")))
			Expect(cfg.LabelKVDir).To(Equal(filepath.Join(cfg.WorkDir, "labels")))

			// a tilde elsewhere in the path is a literal character
			cfg = config.New(config.OptOutDir("/tmp/~evepipe"))
			Expect(cfg.OutDir).To(Equal("/tmp/~evepipe"))
		})
	})
})

func getOpts() []config.Option {
	var opts []config.Option
	opts = append(opts, config.OptDataDir("/tmp/evepipe-data"))
	opts = append(opts, config.OptWorkDir("/tmp/evepipe"))
	opts = append(opts, config.OptOutDir("/tmp/evepipe-out"))
	opts = append(opts, config.OptDepthThreshold(1000))
	opts = append(opts, config.OptDedupPolicy("last"))
	opts = append(opts, config.OptJoinPolicy("drop"))
	opts = append(opts, config.OptPseudocount(0.5))
	opts = append(opts, config.OptEveCmd("Rscript eve.R"))
	opts = append(opts, config.OptJobsNum(8))
	return opts
}
