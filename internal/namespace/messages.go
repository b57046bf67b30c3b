package namespace

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ClearMessage 与 CLI 共用的清理结果文案。
func ClearMessage(typ string, count int) string {
	if typ == "" {
		if count == 0 {
			return "No typed entries found, vp-cache is already empty."
		}
		return fmt.Sprintf("%s typed cache entries cleared.", humanize.Comma(int64(count)))
	}
	if count == 0 {
		return fmt.Sprintf("No %s entries found, vp-cache is already empty.", typ)
	}
	return fmt.Sprintf("%s %s cache entries cleared.", humanize.Comma(int64(count)), typ)
}

// FlushMessage 与 CLI 共用的 flush 结果文案。
func FlushMessage(count int) string {
	if count == 0 {
		return "No entries found, vp-cache is already empty."
	}
	return fmt.Sprintf("%s cache entries cleared.", humanize.Comma(int64(count)))
}
