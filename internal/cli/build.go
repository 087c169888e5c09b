package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/seqarc/internal/engine"
	"github.com/kilupskalvis/seqarc/internal/fasta"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCmd = &cobra.Command{
	Use:   "build <output> <fasta>...",
	Short: "Build an archive from FASTA files",
	Long: `Build a new archive from one or more FASTA files (plain or gzip).
Each file becomes one sample named after the file, e.g. HG002.fa.gz becomes
sample HG002; every record in the file becomes a contig of that sample.`,
	Args: cobra.MinimumNArgs(2),
	Run:  runBuild,
}

var (
	buildFormat    string
	buildBlockSize int
	buildLevel     string
	buildSample    string
)

func init() {
	buildCmd.Flags().StringVar(&buildFormat, "format", "", "Container format: bolt or sqlite (default: config build.format)")
	buildCmd.Flags().IntVar(&buildBlockSize, "block-size", 0, "Residues per compressed block (default: config build.block_size)")
	buildCmd.Flags().StringVar(&buildLevel, "level", "", "Compression level: fastest, default, better, best")
	buildCmd.Flags().StringVar(&buildSample, "sample", "", "Sample name (only with a single FASTA file)")
}

// buildStats summarizes a finished build
type buildStats struct {
	Samples  int
	Contigs  int
	Residues int64
}

func runBuild(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	out, inputs := args[0], args[1:]
	if buildSample != "" && len(inputs) != 1 {
		exitError("--sample requires exactly one FASTA file")
	}

	opts := c.Config.BuildOptions()
	if buildFormat != "" {
		f, err := engine.ParseFormat(buildFormat)
		if err != nil {
			exitError("%v", err)
		}
		opts.Format = f
	}
	if buildBlockSize != 0 {
		opts.BlockSize = buildBlockSize
	}
	if buildLevel != "" {
		opts.Level = buildLevel
	}
	opts.Logger = c.Logger

	stats, err := buildArchive(out, inputs, buildSample, opts)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Built %s\n", out)
	fmt.Printf("  %d samples, %d contigs, %d bp (%s, block size %d)\n",
		stats.Samples, stats.Contigs, stats.Residues, opts.Format, opts.BlockSize)
}

// buildArchive writes the FASTA inputs into a new archive at out. On any error
// the partial archive is removed.
func buildArchive(out string, inputs []string, sample string, opts engine.BuildOptions) (buildStats, error) {
	var stats buildStats

	b, err := engine.Create(out, opts)
	if err != nil {
		return stats, err
	}

	seen := make(map[string]bool)
	for _, in := range inputs {
		name := sample
		if name == "" {
			name = fasta.SampleName(in)
		}
		if seen[name] {
			b.Abort()
			return stats, fmt.Errorf("%s: sample %s already added from another file", in, name)
		}
		seen[name] = true

		if err := b.AddSample(name); err != nil {
			b.Abort()
			return stats, err
		}
		stats.Samples++

		err := fasta.ReadFile(in, func(r fasta.Record) error {
			if err := b.AddContig(name, r.ID, r.Seq); err != nil {
				return err
			}
			stats.Contigs++
			stats.Residues += int64(len(r.Seq))
			return nil
		})
		if err != nil {
			b.Abort()
			return stats, err
		}
		if opts.Logger != nil {
			opts.Logger.Info("sample added", zap.String("sample", name), zap.String("file", in))
		}
	}

	if err := b.Close(); err != nil {
		return stats, err
	}
	return stats, nil
}
