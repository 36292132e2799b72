package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/csim/cache"
)

var _ = Describe("csim command", func() {
	var (
		dir       string
		tracePath string
		results   string
		out       *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetArgs(append(args, "--results", results))
		cmd.SetOut(out)
		cmd.SetErr(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		tracePath = filepath.Join(dir, "yi.trace")
		results = filepath.Join(dir, ".csim_results")
		out = &bytes.Buffer{}

		Expect(os.WriteFile(tracePath, []byte(
			" L 10,1\n M 20,1\n L 22,1\n S 18,1\n L 110,1\n L 210,1\n M 12,1\n",
		), 0644)).To(Succeed())
	})

	It("should print the summary and write the results file", func() {
		err := execute("-s", "4", "-E", "1", "-b", "4", "-t", tracePath)
		Expect(err).NotTo(HaveOccurred())

		Expect(out.String()).To(Equal("hits:4 misses:5 evictions:3\n"))

		data, err := os.ReadFile(results)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("4 5 3\n"))
	})

	It("should print every record in verbose mode", func() {
		err := execute("-v", "-s", "4", "-E", "1", "-b", "4", "-t", tracePath)
		Expect(err).NotTo(HaveOccurred())

		Expect(out.String()).To(HavePrefix("L 10,1 miss\nM 20,1 miss hit\n"))
		Expect(out.String()).To(HaveSuffix(
			"M 12,1 miss eviction hit\nhits:4 misses:5 evictions:3\n"))
	})

	It("should require the geometry without a config file", func() {
		err := execute("-s", "4", "-t", tracePath)
		Expect(err).To(MatchError(errMissingGeometry))
		Expect(out.String()).To(ContainSubstring("Usage:"))
	})

	It("should require a trace file", func() {
		err := execute("-s", "4", "-E", "1", "-b", "4")
		Expect(err).To(HaveOccurred())
	})

	It("should reject an invalid geometry", func() {
		err := execute("-s", "4", "-E", "0", "-b", "4", "-t", tracePath)

		var configErr *cache.ConfigError
		Expect(err).To(BeAssignableToTypeOf(configErr))
	})

	It("should let flags override the config file", func() {
		configPath := filepath.Join(dir, "cache.json")
		config := &cache.Config{SetBits: 4, LinesPerSet: 8, BlockBits: 4}
		Expect(config.SaveConfig(configPath)).To(Succeed())

		err := execute("--config", configPath, "-E", "1", "-t", tracePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("hits:4 misses:5 evictions:3\n"))
	})

	It("should use the config file alone", func() {
		configPath := filepath.Join(dir, "cache.json")
		config := &cache.Config{SetBits: 4, LinesPerSet: 4, BlockBits: 4}
		Expect(config.SaveConfig(configPath)).To(Succeed())

		err := execute("--config", configPath, "-t", tracePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("hits:5 misses:4 evictions:0\n"))
	})

	It("should report malformed traces", func() {
		Expect(os.WriteFile(tracePath, []byte(" L 10,1\n L oops\n"), 0644)).
			To(Succeed())

		err := execute("-s", "4", "-E", "1", "-b", "4", "-t", tracePath)
		Expect(err).To(MatchError(ContainSubstring("trace line 2")))
		Expect(results).NotTo(BeAnExistingFile())
	})

	It("should record the run into SQLite", func() {
		dbPath := filepath.Join(dir, "run")

		err := execute("-s", "4", "-E", "1", "-b", "4", "-t", tracePath,
			"--record", dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(dbPath + ".sqlite3").To(BeAnExistingFile())
	})

	It("should write CPU and heap profiles", func() {
		cpu := filepath.Join(dir, "cpu.prof")
		mem := filepath.Join(dir, "mem.prof")

		err := execute("-s", "4", "-E", "1", "-b", "4", "-t", tracePath,
			"--cpuprofile", cpu, "--memprofile", mem)
		Expect(err).NotTo(HaveOccurred())
		Expect(cpu).To(BeAnExistingFile())
		Expect(mem).To(BeAnExistingFile())
	})

	Describe("closing the recorder", func() {
		var logged *bytes.Buffer

		BeforeEach(func() {
			logged = &bytes.Buffer{}
			logger.SetOutput(logged)
			DeferCleanup(func() { logger.SetOutput(os.Stderr) })
		})

		It("should flush before closing", func() {
			r := &stubRecorder{}

			closeRecorder(r)

			Expect(r.calls).To(Equal([]string{"flush", "close"}))
			Expect(logged.String()).To(BeEmpty())
		})

		It("should log a failed close", func() {
			r := &stubRecorder{closeErr: errors.New("disk I/O error")}

			closeRecorder(r)

			Expect(logged.String()).To(Equal(
				"csim: failed to close run.sqlite3: disk I/O error\n"))
		})
	})
})

type stubRecorder struct {
	calls    []string
	closeErr error
}

func (r *stubRecorder) Flush() {
	r.calls = append(r.calls, "flush")
}

func (r *stubRecorder) Close() error {
	r.calls = append(r.calls, "close")
	return r.closeErr
}

func (r *stubRecorder) FileName() string {
	return "run.sqlite3"
}
