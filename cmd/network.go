package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the selected Solana cluster",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		printNetwork(a)
	},
}

var networkToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between mainnet and devnet",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustLoadApp(cmd)
		devnet, err := a.store.ToggleNetwork()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		a.devnet = devnet
		printNetwork(a)
	},
}

func init() {
	rootCmd.AddCommand(networkCmd)
	networkCmd.AddCommand(networkToggleCmd)
}

func printNetwork(a *app) {
	info := networkInfo(a)
	if a.json {
		printJSON(info)
		return
	}

	name := color.GreenString("mainnet")
	if a.devnet {
		name = color.YellowString("devnet")
	}
	fmt.Printf("\nNetwork:  %s\nEndpoint: %s\nState:    %s\n\n",
		name,
		color.HiBlackString("%s", info["endpoint"]),
		color.HiBlackString("%s", info["state_path"]))
}

func networkInfo(a *app) map[string]string {
	return map[string]string{
		"network":    a.network(),
		"endpoint":   a.chainClient().Endpoint(),
		"state_path": a.store.GetFilePath(),
	}
}
