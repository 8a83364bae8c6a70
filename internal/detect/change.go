package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"tcgprice/internal/store"
)

// Notification and post types.
const (
	TypePriceDrop = "price_drop"
	TypePriceRise = "price_rise"
	TypeSummary   = "summary"
)

// Percent returns the relative change from oldPrice to newPrice. A zero old
// price yields 0.
func Percent(oldPrice, newPrice int) float64 {
	if oldPrice == 0 {
		return 0
	}
	return float64(newPrice-oldPrice) * 100 / float64(oldPrice)
}

// ChangeFromMove builds the change record for a price move.
func ChangeFromMove(m store.PriceMove) store.PriceChange {
	return store.PriceChange{
		CardID:        m.CardID,
		CardName:      m.CardName,
		ShopID:        m.ShopID,
		ShopName:      m.ShopName,
		OldPrice:      m.OldPrice,
		NewPrice:      m.NewPrice,
		ChangeAmount:  m.NewPrice - m.OldPrice,
		ChangePercent: Percent(m.OldPrice, m.NewPrice),
	}
}

func changeType(c store.PriceChange) string {
	if c.ChangeAmount < 0 {
		return TypePriceDrop
	}
	return TypePriceRise
}

func yen(amount int) string {
	return humanize.Comma(int64(amount)) + "円"
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Notify reports whether a watcher wants to hear about c.
func Notify(w store.Watcher, c store.PriceChange) bool {
	if !w.SiteEnabled || c.ChangeAmount == 0 {
		return false
	}
	if c.ChangeAmount < 0 {
		return -c.ChangeAmount >= w.PriceDropThreshold
	}
	return c.ChangeAmount >= w.PriceRiseThreshold
}

// NotificationFor renders the in-app message for a watcher.
func NotificationFor(userID int64, c store.PriceChange) store.Notification {
	n := store.Notification{UserID: userID, Type: changeType(c), CardID: c.CardID}
	moved := fmt.Sprintf("(%s → %s)", yen(c.OldPrice), yen(c.NewPrice))
	if c.ChangeAmount < 0 {
		n.Title = "値下げ: " + c.CardName
		n.Message = fmt.Sprintf("%sで%s値下げ %s", c.ShopName, yen(-c.ChangeAmount), moved)
	} else {
		n.Title = "値上げ: " + c.CardName
		n.Message = fmt.Sprintf("%sで%s値上げ %s", c.ShopName, yen(c.ChangeAmount), moved)
	}
	return n
}

// SinglePost renders the outbound post for one large change.
func SinglePost(c store.PriceChange) store.Post {
	var b strings.Builder
	if c.ChangeAmount < 0 {
		b.WriteString("📉 値下げ通知\n\n")
	} else {
		b.WriteString("📈 値上げ通知\n\n")
	}
	fmt.Fprintf(&b, "【%s】\n", c.CardName)
	fmt.Fprintf(&b, "🏪 %s\n", c.ShopName)
	fmt.Fprintf(&b, "💰 %s → %s\n", yen(c.OldPrice), yen(c.NewPrice))
	fmt.Fprintf(&b, "%s (%+.1f%%)", signedYen(c.ChangeAmount), c.ChangePercent)
	return store.Post{PostType: changeType(c), Content: b.String(), CardID: c.CardID}
}

func signedYen(amount int) string {
	if amount < 0 {
		return "-" + yen(-amount)
	}
	return "+" + yen(amount)
}

// SummaryPost renders one post listing the top movers by magnitude, drops
// first, then rises.
func SummaryPost(changes []store.PriceChange, top int) store.Post {
	sorted := append([]store.PriceChange(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absInt(sorted[i].ChangeAmount) > absInt(sorted[j].ChangeAmount)
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}
	var drops, rises []store.PriceChange
	for _, c := range sorted {
		if c.ChangeAmount < 0 {
			drops = append(drops, c)
		} else {
			rises = append(rises, c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 価格変動まとめ (%d件)\n", len(changes))
	writeSection := func(title string, list []store.PriceChange) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, c := range list {
			fmt.Fprintf(&b, "・%s %s → %s (%s)\n", c.CardName, yen(c.OldPrice), yen(c.NewPrice), signedYen(c.ChangeAmount))
		}
	}
	writeSection("📉 値下げ", drops)
	writeSection("📈 値上げ", rises)
	return store.Post{PostType: TypeSummary, Content: strings.TrimRight(b.String(), "\n")}
}
