package app

import (
	"flag"
	"io"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はキャッシュ更新ワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandCalendar はカレンダーを端末に1回表示することを示す。
	CommandCalendar Command = "calendar"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "calendar":
		return CommandCalendar
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// calendarOptions はcalendarサブコマンドのフラグ。
type calendarOptions struct {
	View    string
	Month   string
	Refresh bool
}

// parseCalendarFlags はcalendarサブコマンドの引数を解析する。
// argsにはサブコマンド名より後の引数を渡す。
func parseCalendarFlags(args []string, errOut io.Writer) (calendarOptions, error) {
	var opts calendarOptions

	fs := flag.NewFlagSet(string(CommandCalendar), flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.View, "view", "all", "表示モード (all|month)")
	fs.StringVar(&opts.Month, "month", "", "対象月 (YYYY-MM)。省略時は今月")
	fs.BoolVar(&opts.Refresh, "refresh", false, "キャッシュを使わずに再取得する")

	if err := fs.Parse(args); err != nil {
		return calendarOptions{}, err
	}
	return opts, nil
}
