package main

import "github.com/Phuc-215/WEBRTC/cmd/callctl/cmd"

func main() {
	cmd.Execute()
}
