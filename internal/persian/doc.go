// Package persian converts digits between Persian, Arabic-Indic and ASCII
// forms and formats Jalali calendar dates.
//
// Inbound text is normalized with NormalizeDigits so menu choices and scores
// typed on a Persian keyboard parse as numbers. Outbound reports pass through
// ToPersianDigits.
package persian
