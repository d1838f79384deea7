package main

import "github.com/baulhq/baul/internal/cli"

func main() {
	cli.Execute()
}
