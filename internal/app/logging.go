package app

import (
	"io"

	"github.com/ethereum/go-ethereum/log"
)

// SetupLogging routes the root logger to w at the given level
// (trace, debug, info, warn, error, crit).
func SetupLogging(w io.Writer, level string, color bool) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(w, log.TerminalFormat(color))))
	return nil
}
