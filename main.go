package main

import (
	"github.com/dreamerjackson/bookcrawler/cmd"
)

func main() {
	cmd.Execute()
}
