package main

import (
	"fmt"
	"os"

	"ugel-incidentes/core/appbootstrap"
)

func main() {
	if err := appbootstrap.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
