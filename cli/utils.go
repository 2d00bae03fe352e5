package cli

import (
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/hostdiag/probekit/pkg/sdk"
)

var psdk sdk.SDK

// SetSDK sets the engine SDK instance the commands talk through.
func SetSDK(s sdk.SDK) {
	psdk = s
}

func logJSONCmd(cmd cobra.Command, v any) {
	out, err := prettyjson.Marshal(v)
	if err != nil {
		logErrorCmd(cmd, err)

		return
	}
	cmd.Println(string(out))
}

func logErrorCmd(cmd cobra.Command, err error) {
	boldRed := color.New(color.FgRed, color.Bold)
	cmd.PrintErrln(boldRed.Sprint("error:"), err.Error())
}

func logSuccessCmd(cmd cobra.Command, msg string) {
	boldGreen := color.New(color.FgGreen, color.Bold)
	cmd.Println(boldGreen.Sprint(msg))
}

func logUsageCmd(cmd cobra.Command, usage string) {
	boldYellow := color.New(color.FgYellow, color.Bold)
	cmd.Println(boldYellow.Sprint("usage: " + usage))
}
