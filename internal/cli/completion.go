package cli

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for seqarc.

Bash:
  $ source <(seqarc completion bash)

Zsh:
  $ seqarc completion zsh > "${fpath[1]}/_seqarc"

Fish:
  $ seqarc completion fish > ~/.config/fish/completions/seqarc.fish

PowerShell:
  PS> seqarc completion powershell | Out-String | Invoke-Expression
`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
