// Package display draws event displays of clustered events in the
// (eta, phi) plane: a static PNG through gonum/plot and an interactive
// HTML scatter through go-echarts.
package display
