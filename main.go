// Command pubdir builds the publisher directory artifacts.
package main

import (
	"os"

	"github.com/JakeFAU/publisher-directory/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
