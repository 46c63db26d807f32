package main

import "github/chapool/cctp-rebalancer/cmd"

func main() {
	cmd.Execute()
}
