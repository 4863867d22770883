package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var wonPrinter = message.NewPrinter(language.Korean)

// FormatReward renders an allowance amount in won with digit grouping, e.g. "1,200원".
func FormatReward(amount int) string {
	return wonPrinter.Sprintf("%d원", amount)
}
