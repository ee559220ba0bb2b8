// Package chart renders gradebook charts to PNG files with gonum/plot.
//
// Every renderer runs on a shared Pool that bounds how many charts are
// drawn at once, writes a fresh file under the configured directory and
// returns its path. Callers own the file and remove it once sent.
// Renderers return ErrNoData when their input has nothing to plot.
package chart
