// Command fingov runs the governance engine as an HTTP service and offers
// offline policy tooling.
package main

import "os"

func main() {
	os.Exit(Execute(os.Args[1:]))
}
