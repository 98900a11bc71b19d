package main

import (
	"gradewatch/cmd/gradewatch-cli/commands"
	"gradewatch/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
