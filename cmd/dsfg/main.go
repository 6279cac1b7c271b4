package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dsfg/calendar/internal/app"
)

func main() {
	args := os.Args[1:]

	// calendarコマンドは標準出力に表示するため、ログは標準エラーに出す
	var logOut io.Writer = os.Stdout
	if app.ParseCommand(args) == app.CommandCalendar {
		logOut = os.Stderr
	}

	if err := app.Run(logOut, args); err != nil {
		fmt.Fprintf(os.Stderr, "dsfg: %v\n", err)
		os.Exit(1)
	}
}
