// Package format renders money, dates and percentages for the pt-BR locale.
//
// All functions are pure. Callers convert times to the display location
// before formatting.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"gofinances/internal/core"
)

// NoTransactions is shown in place of a date when a highlight has no
// transactions behind it.
const NoTransactions = "Não há transações"

const currencySymbol = "R$"

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Currency formats m as Brazilian reais, e.g. "R$ 1.234,56" or "-R$ 60,00".
func Currency(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strings.ReplaceAll(humanize.Comma(cents/100), ",", ".")
	return sign + currencySymbol + " " + whole + "," + twoDigits(int(cents%100))
}

// MonthName returns the lowercase pt-BR name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// DayMonth formats t as "5 de janeiro".
func DayMonth(t time.Time) string {
	return strconv.Itoa(t.Day()) + " de " + MonthName(t.Month())
}

// ShortDate formats t as "05/01/24".
func ShortDate(t time.Time) string {
	return twoDigits(t.Day()) + "/" + twoDigits(int(t.Month())) + "/" + twoDigits(t.Year()%100)
}

// MonthYear formats a month selection as "janeiro, 2024".
func MonthYear(year, month int) string {
	return MonthName(time.Month(month)) + ", " + strconv.Itoa(year)
}

// Percent renders p rounded to the nearest integer with a "%" suffix.
func Percent(p decimal.Decimal) string {
	return p.Round(0).String() + "%"
}

// AddMonths moves a (year, month) selection by delta months.
func AddMonths(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), int(t.Month())
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// NextMonth returns the month after (year, month).
func NextMonth(year, month int) (int, int) { return AddMonths(year, month, 1) }

// PrevMonth returns the month before (year, month).
func PrevMonth(year, month int) (int, int) { return AddMonths(year, month, -1) }
