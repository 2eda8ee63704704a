// Command prefixload uploads the files of a local directory to S3 according
// to prefix rules kept in a YAML configuration file.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
