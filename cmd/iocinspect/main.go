// Command iocinspect prints the registration catalogue linked into the binary,
// the registrations a config file selects and the components they register.
package main

import (
	"os"

	_ "github.com/01fortes/goioc/internal/testdomain"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
