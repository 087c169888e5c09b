package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <archive> <sample> <contig>",
	Short: "Extract sequence from a contig",
	Long: `Extract residues [start, end) of a contig as FASTA. Coordinates are zero-based
and half-open; without --end the range runs to the end of the contig.`,
	Args: cobra.ExactArgs(3),
	Run:  runGet,
}

var (
	getStart int64
	getEnd   int64
	getRaw   bool
	getWidth int
)

func init() {
	getCmd.Flags().Int64Var(&getStart, "start", 0, "First residue (zero-based, inclusive)")
	getCmd.Flags().Int64Var(&getEnd, "end", -1, "End residue (exclusive, default: contig length)")
	getCmd.Flags().BoolVar(&getRaw, "raw", false, "Print the bare sequence without a FASTA header")
	getCmd.Flags().IntVarP(&getWidth, "width", "w", -1, "Line width, 0 for a single line (default: config line_width)")
}

func runGet(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a := c.openArchive(args[0])
	defer a.Close()
	sample, contig := args[1], args[2]

	end := getEnd
	if !cmd.Flags().Changed("end") {
		length, err := a.ContigLength(sample, contig)
		if err != nil {
			exitError("%v", err)
		}
		end = length
	}

	seq, err := a.ContigString(sample, contig, getStart, end)
	if err != nil {
		exitError("%v", err)
	}

	width := getWidth
	if width < 0 {
		width = c.Config.LineWidth
	}
	header := ""
	if !getRaw {
		header = fastaHeader(sample, contig, getStart, end)
	}
	if err := writeFASTA(os.Stdout, header, seq, width); err != nil {
		exitError("write output: %v", err)
	}
}
