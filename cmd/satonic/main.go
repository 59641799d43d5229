// File: cmd/satonic/main.go
package main

import "satonic/cmd/satonic/cmd"

func main() {
	cmd.Execute()
}
