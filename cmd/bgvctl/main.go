package main

import "github.com/jrsteele09/bgv-gateway/cmd/bgvctl/cmd"

func main() {
	cmd.Execute()
}
