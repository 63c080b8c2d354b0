// Package currency defines the closed set of currency codes Brokewise accepts.
package currency

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCurrency is returned when a code is outside the supported set.
var ErrUnknownCurrency = errors.New("unknown currency")

// Code is an ISO 4217 currency code from the supported set.
type Code string

const (
	USD Code = "USD"
	EUR Code = "EUR"
	JPY Code = "JPY"
	GBP Code = "GBP"
	CNY Code = "CNY"
	AUD Code = "AUD"
	CAD Code = "CAD"
	CHF Code = "CHF"
	HKD Code = "HKD"
	SGD Code = "SGD"
	SEK Code = "SEK"
	KRW Code = "KRW"
	INR Code = "INR"
	BRL Code = "BRL"
	RUB Code = "RUB"
	ZAR Code = "ZAR"
	MXN Code = "MXN"
	IDR Code = "IDR"
	TRY Code = "TRY"
	SAR Code = "SAR"
)

// Info describes a supported currency for display.
type Info struct {
	Code Code
	Name string
}

// supported keeps the order currencies are offered in.
var supported = []Info{
	{USD, "US Dollar"},
	{EUR, "Euro"},
	{JPY, "Japanese Yen"},
	{GBP, "British Pound"},
	{CNY, "Chinese Yuan"},
	{AUD, "Australian Dollar"},
	{CAD, "Canadian Dollar"},
	{CHF, "Swiss Franc"},
	{HKD, "Hong Kong Dollar"},
	{SGD, "Singapore Dollar"},
	{SEK, "Swedish Krona"},
	{KRW, "South Korean Won"},
	{INR, "Indian Rupee"},
	{BRL, "Brazilian Real"},
	{RUB, "Russian Ruble"},
	{ZAR, "South African Rand"},
	{MXN, "Mexican Peso"},
	{IDR, "Indonesian Rupiah"},
	{TRY, "Turkish Lira"},
	{SAR, "Saudi Riyal"},
}

var byCode = func() map[Code]Info {
	m := make(map[Code]Info, len(supported))
	for _, info := range supported {
		m[info.Code] = info
	}
	return m
}()

// Parse normalizes s and checks it against the supported set.
func Parse(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}
	return c, nil
}

// Valid reports whether c is in the supported set.
func (c Code) Valid() bool {
	_, ok := byCode[c]
	return ok
}

func (c Code) String() string { return string(c) }

// Supported returns the supported currencies in display order.
func Supported() []Info {
	out := make([]Info, len(supported))
	copy(out, supported)
	return out
}
