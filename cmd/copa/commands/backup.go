package commands

import "github.com/thoreinstein/copa/cmd/copa/commands/backup"

func init() {
	rootCmd.AddCommand(backup.Cmd)
}
