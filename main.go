package main

import (
	"qrate/cmd"
)

func main() {
	cmd.Execute()
}
