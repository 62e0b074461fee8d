package main

import "lawgpt/internal/cli"

func main() {
	cli.Execute()
}
