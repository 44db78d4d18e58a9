// Package currency はロケールに応じた金額の整形を提供する。
package currency

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// vndSymbol はVNDの通貨記号。vi-VNのIntl.NumberFormatと同じく数値の後ろに置く。
const vndSymbol = "₫"

// nbsp は数値と通貨記号の区切り（ノーブレークスペース）。
const nbsp = "\u00a0"

// vnd はベトナムドンの通貨単位。
var vnd = currency.MustParseISO("VND")

// Formatter は通貨単位とロケールを固定した金額フォーマッター。
// message.Printerはゴルーチン安全ではないため、呼び出しごとに生成する。
type Formatter struct {
	unit   currency.Unit
	tag    language.Tag
	symbol string
}

// VND はvi-VNロケールのベトナムドン・フォーマッター。
var VND = Formatter{
	unit:   vnd,
	tag:    language.Vietnamese,
	symbol: vndSymbol,
}

// Format は最小通貨単位の金額を "25.000 ₫" 形式で整形する。
// 小数桁数は通貨の標準の丸め規則に従う。VNDは0桁のため整数のまま桁区切りする。
func (f Formatter) Format(amount int64) string {
	p := message.NewPrinter(f.tag)
	scale, _ := currency.Standard.Rounding(f.unit)
	if scale == 0 {
		return p.Sprintf("%d", amount) + nbsp + f.symbol
	}
	return p.Sprintf("%.*f", scale, float64(amount)/math.Pow10(scale)) + nbsp + f.symbol
}

// FormatVND はVNDでの金額整形のショートカット。
func FormatVND(amount int64) string {
	return VND.Format(amount)
}
