package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var contigsCmd = &cobra.Command{
	Use:   "contigs <archive> <sample>",
	Short: "List contigs of a sample",
	Long:  `List the contigs of a sample in archive order, optionally with their lengths.`,
	Args:  cobra.ExactArgs(2),
	Run:   runContigs,
}

var (
	contigsCount bool
	contigsLong  bool
)

func init() {
	contigsCmd.Flags().BoolVarP(&contigsCount, "count", "c", false, "Print only the number of contigs")
	contigsCmd.Flags().BoolVarP(&contigsLong, "long", "l", false, "Print the length of each contig")
}

func runContigs(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a := c.openArchive(args[0])
	defer a.Close()
	sample := args[1]

	if contigsCount {
		n, err := a.ContigCount(sample)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Println(n)
		return
	}

	contigs, err := a.ListContigs(sample)
	if err != nil {
		exitError("%v", err)
	}
	for _, name := range contigs {
		if !contigsLong {
			fmt.Println(name)
			continue
		}
		length, err := a.ContigLength(sample, name)
		if err != nil {
			exitError("%v", err)
		}
		fmt.Printf("%s\t%d\n", name, length)
	}
}
