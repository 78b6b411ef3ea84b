package main

import (
	"github.com/aiinpocket/TradingAgents-CN-sub001/cmd"
)

func main() {
	cmd.Execute()
}
