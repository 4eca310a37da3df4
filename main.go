package main

import "github.com/oss-metrics/ponyfactor/cmd"

func main() {
	cmd.Execute()
}
