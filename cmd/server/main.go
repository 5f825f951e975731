// Command server runs the optimizehub async job execution API: job
// submission, polling, progress streaming, and the sandboxed
// custom-algorithm endpoint (§6).
package main

import (
	"fmt"
	"os"

	"github.com/kthendral/optimizehub/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	port := a.Cfg.Port
	fmt.Printf("listening on :%s\n", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Warn("server stopped", "error", err.Error())
	}
}
