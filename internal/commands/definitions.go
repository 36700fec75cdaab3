package commands

// Command names as typed after the prefix. Each long name has a short alias.
const (
	CmdTrade        = "trade"
	CmdTradeAdd     = "trade_add"
	CmdTradeAddAll  = "trade_addall"
	CmdTradeRemove  = "trade_remove"
	CmdTradeConfirm = "trade_confirm"
	CmdTradeCancel  = "trade_cancel"
	CmdOrder        = "order"
)

var aliases = map[string]string{
	"t":   CmdTrade,
	"ta":  CmdTradeAdd,
	"taa": CmdTradeAddAll,
	"tr":  CmdTradeRemove,
	"tc":  CmdTradeConfirm,
	"tx":  CmdTradeCancel,
}

// Canonical resolves an alias to its command name. Unknown names are
// returned unchanged.
func Canonical(name string) string {
	if c, ok := aliases[name]; ok {
		return c
	}
	return name
}
