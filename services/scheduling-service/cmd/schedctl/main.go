// Command schedctl talks to the scheduling service over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/md-rashed-zaman/vetclinic/libs/runtime"
)

func main() {
	ctx, stop := runtime.SignalContext()
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
