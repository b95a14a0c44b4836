package main

import "github.com/boostcampwm2025/ios02-damago/cmd"

func main() {
	cmd.Run()
}
