// Package report turns store results into chat-ready text.
//
// It computes the class summary statistics shown to teachers, builds the
// student report card and score history, the manager's completion and
// multi-period analysis reports, and the reminder sent to teachers with
// missing scores. Report cards and score history use Persian digits.
package report
