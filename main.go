// The main package for the catalogue-titles executable.
package main

import (
	"os"

	"github.com/JakeFAU/catalogue-titles/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
