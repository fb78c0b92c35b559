package main

import "github.com/takaishi/fifpanel/cmd"

func main() {
	cmd.Execute()
}
