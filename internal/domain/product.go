package domain

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Product is a sellable item. ProductID is assigned by the operator, not by
// the database. NoStock is a stock-count placeholder and is not enforced.
type Product struct {
	ProductID int
	Name      string
	Filename  string
	Price     int
	NoStock   *int
}

var yenPrinter = message.NewPrinter(language.Japanese)

// ToPriceStr renders an integer yen amount with digit grouping, e.g. "¥1,200".
func ToPriceStr(price int) string {
	return yenPrinter.Sprintf("¥%d", price)
}

// PriceStr renders the product's unit price for display.
func (p Product) PriceStr() string {
	return ToPriceStr(p.Price)
}

// FormatServiceTime renders a duration in seconds as Japanese minutes/seconds,
// e.g. "3 分 24 秒".
func FormatServiceTime(secs int) string {
	return fmt.Sprintf("%d 分 %d 秒", secs/60, secs%60)
}
