package main

import "github.com/sisu-network/proposal-relay/cmd"

func main() {
	cmd.Execute()
}
