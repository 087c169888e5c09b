package cli

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/kilupskalvis/seqarc/pkg/seqarc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Decode every contig and report damage",
	Long: `Decode every contig of every sample and check that the archive returns the
advertised number of residues. Samples are checked in parallel, each worker
with its own handle on the archive.`,
	Args: cobra.ExactArgs(1),
	Run:  runVerify,
}

var verifyJobs int

// verifyChunk bounds how many residues one extraction call decodes.
const verifyChunk int64 = 1 << 20

func init() {
	verifyCmd.Flags().IntVarP(&verifyJobs, "jobs", "j", runtime.NumCPU(), "Number of samples to check in parallel")
}

// sampleReport is the outcome of verifying one sample
type sampleReport struct {
	Sample   string
	Contigs  int
	Residues int64
	Failures []error
}

func runVerify(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	open := func() (*seqarc.Archive, error) {
		a := seqarc.New(seqarc.WithCacheBlocks(c.Config.CacheBlocks))
		if !a.Open(args[0], c.prefetch()) {
			return nil, a.Err()
		}
		return a, nil
	}

	reports, err := verifyArchive(open, verifyJobs, verifyChunk, c.Logger)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	failed := 0
	for _, r := range reports {
		if len(r.Failures) == 0 {
			green.Printf("  ok   ")
			fmt.Printf("%s (%d contigs, %d bp)\n", r.Sample, r.Contigs, r.Residues)
			continue
		}
		failed++
		red.Printf("  FAIL ")
		fmt.Printf("%s\n", r.Sample)
		for _, f := range r.Failures {
			fmt.Printf("         %v\n", f)
		}
	}

	if failed > 0 {
		exitError("%d of %d samples failed verification", failed, len(reports))
	}
}

// verifyArchive checks every sample with up to jobs workers. Each worker opens
// its own handle through open because a handle must not be shared between goroutines.
func verifyArchive(open func() (*seqarc.Archive, error), jobs int, chunk int64, log *zap.Logger) ([]sampleReport, error) {
	a, err := open()
	if err != nil {
		return nil, err
	}
	samples, err := a.ListSamples()
	a.Close()
	if err != nil {
		return nil, err
	}

	if jobs <= 0 {
		jobs = 1
	}
	reports := make([]sampleReport, len(samples))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, s := range samples {
		g.Go(func() error {
			h, err := open()
			if err != nil {
				return fmt.Errorf("sample %s: %w", s, err)
			}
			defer h.Close()
			reports[i] = verifySample(h, s, chunk)
			log.Debug("sample verified",
				zap.String("sample", s),
				zap.Int("failures", len(reports[i].Failures)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func verifySample(a *seqarc.Archive, sample string, chunk int64) sampleReport {
	report := sampleReport{Sample: sample}

	contigs, err := a.ListContigs(sample)
	if err != nil {
		report.Failures = append(report.Failures, err)
		return report
	}
	report.Contigs = len(contigs)

	for _, contig := range contigs {
		length, err := a.ContigLength(sample, contig)
		if err != nil {
			report.Failures = append(report.Failures, err)
			continue
		}
		for start := int64(0); start < length; start += chunk {
			end := min(start+chunk, length)
			seq, err := a.ContigString(sample, contig, start, end)
			if err != nil {
				report.Failures = append(report.Failures, err)
				break
			}
			if int64(len(seq)) != end-start {
				report.Failures = append(report.Failures,
					fmt.Errorf("%s@%s [%d, %d): got %d residues", contig, sample, start, end, len(seq)))
				break
			}
			report.Residues += int64(len(seq))
		}
	}
	return report
}
