package main

import "traking-shop/internal/cli"

func main() {
	cli.Execute()
}
