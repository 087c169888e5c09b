package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lengthCmd = &cobra.Command{
	Use:   "length <archive> <sample> <contig>",
	Short: "Print the length of a contig",
	Args:  cobra.ExactArgs(3),
	Run:   runLength,
}

func runLength(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a := c.openArchive(args[0])
	defer a.Close()

	n, err := a.ContigLength(args[1], args[2])
	if err != nil {
		exitError("%v", err)
	}
	fmt.Println(n)
}
