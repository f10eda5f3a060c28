package main

import "github.com/usageledger/ledgerd/internal/cli"

func main() {
	cli.Execute()
}
