package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Summarize an archive",
	Long:  `Show every sample in an archive with its contig count and total length.`,
	Args:  cobra.ExactArgs(1),
	Run:   runInfo,
}

func runInfo(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a := c.openArchive(args[0])
	defer a.Close()

	samples, err := a.ListSamples()
	if err != nil {
		exitError("%v", err)
	}

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	yellow.Printf("archive %s\n", args[0])
	fmt.Printf("Samples: %d\n\n", len(samples))

	var grandTotal int64
	for _, s := range samples {
		contigs, err := a.ListContigs(s)
		if err != nil {
			exitError("%v", err)
		}
		var total int64
		for _, name := range contigs {
			n, err := a.ContigLength(s, name)
			if err != nil {
				exitError("%v", err)
			}
			total += n
		}
		grandTotal += total

		cyan.Printf("  %s", s)
		fmt.Printf("  %d contigs, ", len(contigs))
		green.Printf("%d bp\n", total)
	}

	fmt.Println()
	fmt.Printf("Total: %d bp\n", grandTotal)
}
