package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var samplesCmd = &cobra.Command{
	Use:   "samples <archive>",
	Short: "List samples in an archive",
	Long:  `List the samples an archive holds, in archive order.`,
	Args:  cobra.ExactArgs(1),
	Run:   runSamples,
}

var samplesCount bool

func init() {
	samplesCmd.Flags().BoolVarP(&samplesCount, "count", "c", false, "Print only the number of samples")
}

func runSamples(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	a := c.openArchive(args[0])
	defer a.Close()

	if samplesCount {
		n, err := a.SampleCount()
		if err != nil {
			exitError("%v", err)
		}
		fmt.Println(n)
		return
	}

	samples, err := a.ListSamples()
	if err != nil {
		exitError("%v", err)
	}
	for _, s := range samples {
		fmt.Println(s)
	}
}
